package reasoning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinGuidance_Empty(t *testing.T) {
	assert.Equal(t, "", JoinGuidance(nil, 100))
	assert.Equal(t, "", JoinGuidance([]string{}, 100))
}

func TestJoinGuidance_JoinsWithNewlines(t *testing.T) {
	lines := []string{
		"support: lead with the fastest resolution",
		"comparison: state a clear winner up front",
	}
	out := JoinGuidance(lines, 1000)
	assert.Equal(t, lines[0]+"\n"+lines[1], out)
}

// Trimming drops the lowest-priority lines first: lines arrive in
// priority-merge order, so the tail goes.
func TestJoinGuidance_TrimsToBudget(t *testing.T) {
	short := "keep this line"
	long := strings.TrimSpace(strings.Repeat("very long guidance text ", 100))

	out := JoinGuidance([]string{short, long}, 50)
	assert.Equal(t, short, out)
}

func TestJoinGuidance_ZeroBudgetUsesDefault(t *testing.T) {
	out := JoinGuidance([]string{"one line"}, 0)
	assert.Equal(t, "one line", out)
}

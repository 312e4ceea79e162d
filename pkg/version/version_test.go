package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentString(t *testing.T) {
	agent := AgentString()
	assert.True(t, strings.HasPrefix(agent, "oracle-watch/"))
	assert.True(t, strings.HasSuffix(agent, Version))
}

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionSegments(t *testing.T) {
	assert.NotEmpty(t, VERSION)
	assert.NotContains(t, VERSION, "\n")
	assert.Equal(t, 0, MAJOR)
	assert.Equal(t, 3, MINOR)
	assert.Equal(t, "certkeeper/"+VERSION, UserAgent())
}

package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	for code, kind := range map[int16]ErrorKind{
		0: KindOther,
		1: KindQuota,
		2: KindUser,
		3: KindWorkDir,
		4: KindExecutable,
		7: KindOther,
	} {
		assert.Equal(t, kind, newError(code).Kind())
	}

	assert.Equal(t, "not enough quota", newError(1).Error())
	assert.Equal(t, int16(4), newError(4).Code())
}

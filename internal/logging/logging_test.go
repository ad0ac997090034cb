package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupRejectsUnknownValues(t *testing.T) {
	assert.Error(t, Setup("verbose", "plain"))
	assert.Error(t, Setup("info", "xml"))
	assert.NoError(t, Setup("", ""))
}

func TestErrField(t *testing.T) {
	f := Err(errors.New("boom"))
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "boom", f.Value)

	assert.Equal(t, "", Err(nil).Value)
}

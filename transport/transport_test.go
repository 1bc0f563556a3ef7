package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTracker(t *testing.T) {
	var tr ErrorTracker
	assert.Equal(t, "no error recorded", tr.LastError())

	assert.NoError(t, tr.Record(nil))
	assert.Equal(t, "no error recorded", tr.LastError())

	err := errors.New("rfcomm0: input/output error")
	assert.Same(t, err, tr.Record(err))
	assert.Equal(t, "rfcomm0: input/output error", tr.LastError())

	// success does not clear the last failure
	assert.NoError(t, tr.Record(nil))
	assert.Equal(t, "rfcomm0: input/output error", tr.LastError())

	tr.Record(ErrTimeout)
	assert.Equal(t, ErrTimeout.Error(), tr.LastError())
}

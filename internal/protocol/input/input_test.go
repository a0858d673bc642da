package input_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantcarthew/cdpsession/internal/protocol/input"
)

func TestMouseEvent_OmitsUnset(t *testing.T) {
	t.Parallel()

	cmd := input.MouseEvent{Type: input.MouseMoved, X: 1.5, Y: 2}.Command()
	assert.Equal(t, input.CommandDispatchMouseEvent, cmd.Method)

	data, err := cmd.Params.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"mouseMoved","x":1.5,"y":2}`, string(data))
}

package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHidesCause(t *testing.T) {
	cause := errors.New("rpc error: code = Unavailable desc = backend 10.0.0.4 refused")
	err := Transient(cause)

	assert.Equal(t, ErrUnavailable.Message, err.Error())
	assert.NotContains(t, err.Error(), "10.0.0.4")
	assert.ErrorIs(t, err, cause)
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("move post: %w", Wrap(ErrAlreadyInCategory, nil))

	assert.ErrorIs(t, err, ErrAlreadyInCategory)
	assert.NotErrorIs(t, err, ErrNameInUse)
	assert.True(t, Is(err, KindValidation))
	assert.False(t, Is(err, KindPermission))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "plain error", err: errors.New("boom"), want: KindUnknown},
		{name: "nil", err: nil, want: KindUnknown},
		{name: "validation", err: Validation("bad %s", "input"), want: KindValidation},
		{name: "index", err: IndexRequired("CREATE INDEX ...", nil), want: KindIndexRequired},
		{name: "wrapped permission", err: fmt.Errorf("x: %w", ErrNotOwner), want: KindPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIndexRequiredCarriesRef(t *testing.T) {
	err := IndexRequired("create the posts/category index", nil)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "create the posts/category index", fe.Ref)
	assert.Equal(t, "index_required", fe.Kind.String())
}

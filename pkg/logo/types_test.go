package logo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// stubRequester answers every request with result or err.
type stubRequester struct {
	mu     sync.Mutex
	result *logo.Result
	err    error
	paths  []string
}

func (s *stubRequester) Request(_ context.Context, _ logo.Method, path string, _ any) (*logo.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths = append(s.paths, path)

	return s.result, s.err
}

func intPtr(v int) *int {
	return &v
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	method, err := logo.ParseMethod(" patch ")
	require.NoError(t, err)
	assert.Equal(t, logo.MethodPatch, method)
	assert.True(t, method.Mutating())
	assert.False(t, logo.MethodGet.Mutating())

	_, err = logo.ParseMethod("HEAD")
	assert.True(t, logo.IsInvalidArgument(err))
}

func TestDecodeList(t *testing.T) {
	t.Parallel()

	t.Run("bare array", func(t *testing.T) {
		t.Parallel()

		list, err := logo.DecodeList[logo.Record](&logo.Result{Body: json.RawMessage(`[{"CODE":"A"},{"CODE":"B"}]`)})
		require.NoError(t, err)
		assert.Len(t, list.Data, 2)
		assert.Nil(t, list.TotalCount)
		assert.Equal(t, 2, list.Total())
	})

	t.Run("envelope", func(t *testing.T) {
		t.Parallel()

		list, err := logo.DecodeList[struct{ Code string }](&logo.Result{List: &logo.ListResponse[json.RawMessage]{
			Data:       []json.RawMessage{json.RawMessage(`{"Code":"X"}`)},
			TotalCount: intPtr(12),
		}})
		require.NoError(t, err)
		assert.Equal(t, "X", list.Data[0].Code)
		assert.Equal(t, 12, list.Total())
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		list, err := logo.DecodeList[logo.Record](&logo.Result{StatusCode: http.StatusNoContent})
		require.NoError(t, err)
		assert.Empty(t, list.Data)
		assert.NotNil(t, list.Data)
	})

	t.Run("object is not a list", func(t *testing.T) {
		t.Parallel()

		_, err := logo.DecodeList[logo.Record](&logo.Result{Body: json.RawMessage(`{"CODE":"A"}`)})
		require.Error(t, err)
	})
}

func TestListAndGet(t *testing.T) {
	t.Parallel()

	requester := &stubRequester{result: &logo.Result{StatusCode: http.StatusOK, Body: json.RawMessage(`"text"`)}}

	_, err := logo.List[logo.Record](context.Background(), requester, "/items", nil)
	require.Error(t, err)

	var transportErr *logo.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, logo.TransportKindDecode, transportErr.Kind)

	text, err := logo.Get[string](context.Background(), requester, "/items/GetNextCode/A")
	require.NoError(t, err)
	assert.Equal(t, "text", *text)

	failing := &stubRequester{err: logo.NewAPIError(http.StatusNotFound, "GET", "/items/1", nil)}

	_, err = logo.Get[logo.Record](context.Background(), failing, "/items/1")
	assert.True(t, logo.IsNotFound(err))
}

func TestActionResult_Parameter(t *testing.T) {
	t.Parallel()

	result := &logo.ActionResult{Parameters: []logo.KeyValueParameter{{Key: "Code", Value: "A-002"}}}

	value, ok := result.Parameter("Code")
	assert.True(t, ok)
	assert.Equal(t, "A-002", value)

	_, ok = result.Parameter("Missing")
	assert.False(t, ok)
}

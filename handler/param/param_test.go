package param

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type query struct {
	User  string `json:"user" valid:"required"`
	Limit int    `json:"limit"`
}

func TestBindingQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/?user=0xa11ce&limit=3&other=1", nil)

	var q query
	require.NoError(t, Binding(r, &q))
	assert.Equal(t, "0xa11ce", q.User)
	assert.Equal(t, 3, q.Limit)
}

func TestBindingBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"user":"0xb0b","limit":1}`))

	var q query
	require.NoError(t, Binding(r, &q))
	assert.Equal(t, "0xb0b", q.User)
}

func TestBindingValidates(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=3", nil)

	var q query
	assert.Error(t, Binding(r, &q))
}

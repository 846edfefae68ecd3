package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDomainsOnlyVariant(t *testing.T) {
	domains, err := parseDomains([]byte(`{"data":["a.example.com","b.example.com"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, domains)
}

func TestParseFullVariant(t *testing.T) {
	domains, err := parseDomains([]byte(`{"data":{"leaf_cert":{"all_domains":["c.example.com"]}}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"c.example.com"}, domains)
}

func TestParseUnrecognizedShape(t *testing.T) {
	_, err := parseDomains([]byte(`{"data":42}`))
	assert.Error(t, err)
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := parseDomains([]byte(`not json`))
	assert.Error(t, err)
}

package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultContext(t *testing.T) {
	tctx := DefaultContext("my-app")
	assert.Equal(t, "my-app", tctx["ProjectName"])

	// Author keys exist so strict substitution never fails on them.
	_, ok := tctx["Author"]
	assert.True(t, ok)
	_, ok = tctx["AuthorEmail"]
	assert.True(t, ok)
}

func TestContext_Merge(t *testing.T) {
	tctx := DefaultContext("my-app").Merge(Context{
		"Author": "Dana",
		"Extra":  "value",
	})

	assert.Equal(t, "my-app", tctx["ProjectName"])
	assert.Equal(t, "Dana", tctx["Author"])
	assert.Equal(t, "value", tctx["Extra"])
}

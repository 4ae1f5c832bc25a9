package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnhanceHTMLContent(t *testing.T) {
	assert.Equal(t, "", string(EnhanceHTMLContent("")))

	out := string(EnhanceHTMLContent(`<p><img src="/a.png" alt="a"></p>`))
	assert.Contains(t, out, `loading="lazy"`)
	assert.Contains(t, out, `referrerpolicy="no-referrer"`)
	assert.Contains(t, out, `decoding="async"`)
	assert.NotContains(t, out, "<body>")

	out = string(EnhanceHTMLContent(`<table><tr><td>1</td></tr></table>`))
	assert.True(t, strings.HasPrefix(out, `<div class="table-wrap"><table>`), out)
}

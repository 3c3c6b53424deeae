package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		ua := Build("myapp", "1.4.0", "ops@example.com")
		assert.Equal(t, "myapp/1.4.0 (ops@example.com) (+https://github.com/esi-tools/esiauth)", ua)
	})

	t.Run("no contact", func(t *testing.T) {
		ua := Build("myapp", "1.4.0", "")
		assert.Equal(t, "myapp/1.4.0 (+https://github.com/esi-tools/esiauth)", ua)
	})

	t.Run("defaults", func(t *testing.T) {
		ua := Build("", "", "")
		assert.Equal(t, "esiauth/dev (+https://github.com/esi-tools/esiauth)", ua)
	})
}

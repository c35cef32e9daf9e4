package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	t.Run("removes duplicates and empties", func(t *testing.T) {
		got := DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
		assert.Equal(t, []string{"foo", "bar"}, got)
	})

	t.Run("preserves order", func(t *testing.T) {
		got := DedupeAndTrim([]string{"c", "a", "b", "a"})
		assert.Equal(t, []string{"c", "a", "b"}, got)
	})

	t.Run("empty input passes through", func(t *testing.T) {
		assert.Empty(t, DedupeAndTrim(nil))
	})
}

func TestSplitAddressList(t *testing.T) {
	t.Run("splits on semicolons and trims", func(t *testing.T) {
		got := SplitAddressList("contact@amo.fr; agence@amo.fr ;")
		assert.Equal(t, []string{"contact@amo.fr", "agence@amo.fr"}, got)
	})

	t.Run("single address", func(t *testing.T) {
		assert.Equal(t, []string{"contact@amo.fr"}, SplitAddressList("contact@amo.fr"))
	})

	t.Run("blank list yields nil", func(t *testing.T) {
		assert.Nil(t, SplitAddressList("  "))
	})

	t.Run("duplicate addresses collapse", func(t *testing.T) {
		got := SplitAddressList("a@x.fr;a@x.fr;b@x.fr")
		assert.Equal(t, []string{"a@x.fr", "b@x.fr"}, got)
	})
}

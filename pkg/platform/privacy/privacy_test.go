package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	t.Run("IPv4 keeps the /24 prefix", func(t *testing.T) {
		assert.Equal(t, "203.0.113.0/24", AnonymizeIP("203.0.113.57"))
	})

	t.Run("IPv6 keeps the first two hextets", func(t *testing.T) {
		assert.Equal(t, "2001:db8::/32", AnonymizeIP("2001:db8::7334"))
	})

	t.Run("garbage reads as invalid", func(t *testing.T) {
		assert.Equal(t, "invalid", AnonymizeIP("not-an-ip"))
		assert.Equal(t, "invalid", AnonymizeIP(""))
	})

	t.Run("whitespace is tolerated", func(t *testing.T) {
		assert.Equal(t, "203.0.113.0/24", AnonymizeIP(" 203.0.113.57 "))
	})
}

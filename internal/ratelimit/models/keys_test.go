package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyString(t *testing.T) {
	t.Run("identifier and window only", func(t *testing.T) {
		k := NewKey("tenant_42", time.Minute, "")
		assert.Equal(t, "ratelimit:tenant_42:60", k.String())
	})

	t.Run("endpoint scoped keys carry the hash", func(t *testing.T) {
		k := NewKey("ip_203.0.113.5", time.Hour, "/v1/customers")
		assert.Equal(t, "ratelimit:ip_203.0.113.5:3600:"+HashEndpoint("/v1/customers"), k.String())
	})

	t.Run("different windows produce different keys", func(t *testing.T) {
		short := NewKey("tenant_42", time.Minute, "/v1/customers").String()
		long := NewKey("tenant_42", time.Hour, "/v1/customers").String()
		assert.NotEqual(t, short, long)
	})

	t.Run("colons in identifiers cannot forge segments", func(t *testing.T) {
		forged := NewKey("tenant:60", time.Minute, "").String()
		honest := NewKey("tenant", time.Minute, "").String()
		assert.NotEqual(t, honest+":60", forged+":")
		assert.Equal(t, "ratelimit:tenant_60:60", forged)
	})
}

func TestHashEndpoint(t *testing.T) {
	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, HashEndpoint("/v1/customers"), HashEndpoint("/v1/customers"))
	})

	t.Run("distinct routes diverge", func(t *testing.T) {
		assert.NotEqual(t, HashEndpoint("/v1/customers"), HashEndpoint("/v1/subscriptions"))
	})

	t.Run("fixed width", func(t *testing.T) {
		assert.Len(t, HashEndpoint("/v1/clinics/123/slots"), 8)
	})
}

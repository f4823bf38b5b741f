package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts Options) *TTL {
	// Intervalo de limpeza alto para o teste controlar a expiração via Get.
	opts.CleanupInterval = time.Hour
	c := New(opts)
	t.Cleanup(c.Close)
	return c
}

func TestGetSetDelete(t *testing.T) {
	c := newTestCache(t, Options{DefaultTTL: time.Minute})

	assert.Nil(t, c.Get("consent_status:42"))
	c.Set("consent_status:42", []byte(`{"rgpd":"signed"}`))
	assert.Equal(t, []byte(`{"rgpd":"signed"}`), c.Get("consent_status:42"))

	c.Delete("consent_status:42")
	assert.Nil(t, c.Get("consent_status:42"))
}

func TestPrefixTTLExpiry(t *testing.T) {
	c := newTestCache(t, Options{
		PrefixTTLs: map[string]time.Duration{"curto:": 10 * time.Millisecond},
		DefaultTTL: time.Minute,
	})
	c.Set("curto:a", []byte("x"))
	c.Set("longo:a", []byte("y"))

	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, c.Get("curto:a"), "prefixo com TTL curto deve expirar")
	assert.Equal(t, []byte("y"), c.Get("longo:a"), "TTL por omissão ainda válido")
}

func TestDeletePrefix(t *testing.T) {
	c := newTestCache(t, Options{DefaultTTL: time.Minute})
	c.Set("consent_status:42", []byte("a"))
	c.Set("consent_history:42", []byte("b"))
	c.Set("consent_status:7", []byte("c"))

	removed := c.DeletePrefix("consent_status:42")
	assert.Equal(t, 1, removed)
	assert.Nil(t, c.Get("consent_status:42"))
	assert.NotNil(t, c.Get("consent_history:42"))
	assert.NotNil(t, c.Get("consent_status:7"))
}

func TestMaxEntriesEvictsOldestFifth(t *testing.T) {
	c := newTestCache(t, Options{DefaultTTL: time.Minute, MaxEntries: 10})
	for i := 0; i < 11; i++ {
		c.Set(fmt.Sprintf("k:%02d", i), []byte("v"))
		time.Sleep(time.Millisecond) // ordena os timestamps
	}
	require.LessOrEqual(t, c.Len(), 10)
	// Os mais antigos saem primeiro.
	assert.Nil(t, c.Get("k:00"))
	assert.NotNil(t, c.Get("k:10"))
}

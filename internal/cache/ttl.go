package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// TTL é um cache em memória com expiração por prefixo de chave. É um objeto
// explícito, construído no arranque e injetado em quem precisa dele; não há
// singleton de processo.
type TTL struct {
	mu         sync.RWMutex
	items      map[string]item
	prefixTTLs map[string]time.Duration
	defaultTTL time.Duration
	maxEntries int
	stop       chan struct{}
	stopOnce   sync.Once
}

type item struct {
	data    []byte
	storedAt time.Time
}

// Options configura o cache na construção. TTLs por prefixo são fixos a
// partir daqui; não há estado mutável de classe.
type Options struct {
	// PrefixTTLs mapeia prefixo de chave -> tempo de vida (ex.:
	// "consent_status:" -> 5min). Chaves sem prefixo conhecido usam
	// DefaultTTL.
	PrefixTTLs map[string]time.Duration
	DefaultTTL time.Duration
	// MaxEntries limita o tamanho; ao exceder, o quinto mais antigo é
	// descartado.
	MaxEntries      int
	CleanupInterval time.Duration
}

// New cria o cache e arranca a limpeza periódica.
func New(opts Options) *TTL {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 5 * time.Minute
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}
	prefixes := make(map[string]time.Duration, len(opts.PrefixTTLs))
	for p, d := range opts.PrefixTTLs {
		if d > 0 {
			prefixes[p] = d
		}
	}
	c := &TTL{
		items:      make(map[string]item),
		prefixTTLs: prefixes,
		defaultTTL: opts.DefaultTTL,
		maxEntries: opts.MaxEntries,
		stop:       make(chan struct{}),
	}
	go c.cleanup(opts.CleanupInterval)
	return c
}

func (c *TTL) ttlFor(key string) time.Duration {
	for prefix, ttl := range c.prefixTTLs {
		if strings.HasPrefix(key, prefix) {
			return ttl
		}
	}
	return c.defaultTTL
}

func (c *TTL) cleanup(interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-tick.C:
			now := time.Now()
			c.mu.Lock()
			for k, it := range c.items {
				if now.Sub(it.storedAt) > c.ttlFor(k) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close para a goroutine de limpeza. Idempotente.
func (c *TTL) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Get devolve o valor se presente e dentro do TTL do seu prefixo; nil caso
// contrário.
func (c *TTL) Get(key string) []byte {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Since(it.storedAt) > c.ttlFor(key) {
		return nil
	}
	return it.data
}

// Set guarda o valor com o timestamp atual e aplica o limite de tamanho.
func (c *TTL) Set(key string, value []byte) {
	c.mu.Lock()
	c.items[key] = item{data: value, storedAt: time.Now()}
	c.enforceSizeLocked()
	c.mu.Unlock()
}

// enforceSizeLocked descarta 20% das entradas mais antigas quando o limite é
// excedido. Chamado com o lock de escrita tomado.
func (c *TTL) enforceSizeLocked() {
	if len(c.items) <= c.maxEntries {
		return
	}
	type aged struct {
		key      string
		storedAt time.Time
	}
	all := make([]aged, 0, len(c.items))
	for k, it := range c.items {
		all = append(all, aged{k, it.storedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].storedAt.Before(all[j].storedAt) })
	remove := c.maxEntries / 5
	if remove < 1 {
		remove = 1
	}
	for i := 0; i < remove && i < len(all); i++ {
		delete(c.items, all[i].key)
	}
}

// Delete remove a chave.
func (c *TTL) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix remove todas as chaves com o prefixo dado (ex.:
// "consent_status:42" depois de uma mutação do paciente 42) e devolve
// quantas foram removidas.
func (c *TTL) DeletePrefix(prefix string) int {
	n := 0
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	c.mu.Unlock()
	return n
}

// Len devolve o número de entradas, expiradas incluídas (só a limpeza e o
// Get filtram expiração).
func (c *TTL) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

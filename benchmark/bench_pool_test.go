//nolint:testpackage // using package name 'benchmark' to access unexported fields for testing
package benchmark

import (
	"testing"

	"github.com/dzonerzy/go-argtree/argtree"
	pool "github.com/dzonerzy/go-argtree/internal/pool"
)

// Category: pool

func BenchmarkPool_GetPut(b *testing.B) {
	p := pool.NewPool(func() *[]byte {
		buf := make([]byte, 0, 1024)
		return &buf
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			obj := p.Get()
			p.Put(obj)
		}
	})
}

func BenchmarkTokenSlicePool(b *testing.B) {
	tokens := []argtree.Token{
		argtree.ClassifyToken("copy"),
		argtree.ClassifyToken("--force"),
		argtree.ClassifyToken("a.txt"),
		argtree.ClassifyToken("b.txt"),
	}

	b.Run("Pool", func(b *testing.B) {
		p := pool.NewSlicePool[argtree.Token](16, 256)
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				s := p.Get()
				*s = append(*s, tokens...)
				p.Put(s)
			}
		})
	})

	b.Run("Direct", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				s := make([]argtree.Token, 0, 16)
				s = append(s, tokens...)
				_ = s
			}
		})
	})
}

func BenchmarkSlicePool_Oversized(b *testing.B) {
	p := pool.NewSlicePool[string](4, 8)
	big := make([]string, 16)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s := p.Get()
		*s = append(*s, big...)
		p.Put(s)
	}
}

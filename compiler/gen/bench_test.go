package gen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/compiler/gen"
	"github.com/syssam/quarry/compiler/load"
)

func BenchmarkNewGraph(b *testing.B) {
	s, err := load.ParseFile("../load/testdata/blog.quarry")
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := gen.NewGraph(&gen.Config{}, s)
		require.NoError(b, err)
	}
}

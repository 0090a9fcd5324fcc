package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pojntfx/rambench/pkg/bench"
	"github.com/pojntfx/rambench/pkg/kernels"
	"github.com/pojntfx/rambench/pkg/memory"
)

func main() {
	size := flag.Int("size", os.Getpagesize()*1024*64, "Amount of bytes to read")
	width := flag.String("width", "auto", "Chunk width in bytes (8, 16, 32, 64, scalar or auto)")
	allocator := flag.String("allocator", "anonymous", "Allocator to use (anonymous, populated, file or heap)")
	dir := flag.String("dir", os.TempDir(), "Directory to create the backing file in for the file allocator")

	flag.Parse()

	w, err := kernels.ParseWidth(*width)
	if err != nil {
		panic(err)
	}

	a, err := memory.ParseAllocator(*allocator, *dir)
	if err != nil {
		panic(err)
	}

	rv, err := (&bench.Benchmark{
		Allocator: a,
		Width:     w,
	}).Read(*size)
	if err != nil {
		panic(err)
	}

	fmt.Println(rv)
}

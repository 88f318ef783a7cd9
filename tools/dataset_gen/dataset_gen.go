// Command dataset_gen generates a fixture asset tree for the asset server's
// tests and benchmarks: a directory of random byte blobs, each with a
// `<path>.meta.xml` sidecar in the format asset.ParseMeta reads, and an
// optional dependency chain between them so RecursiveDependencyLoadState has
// something nontrivial to walk.
//
// Usage:
//
//	go run ./tools/dataset_gen -n 1000 -out testdata/assets -seed 42
//
// Flags:
//
//	-n        number of assets to generate (default 1000)
//	-out      output directory (created if missing)
//	-minsize  minimum blob size in bytes (default 64)
//	-maxsize  maximum blob size in bytes (default 4096)
//	-chain    average dependency chain length per asset (default 0, no deps)
//	-seed     RNG seed (default current time)
package main

import (
	"encoding/xml"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

type options struct {
	n       int
	out     string
	minSize int
	maxSize int
	chain   int
	seed    int64
}

func parseFlags() options {
	var o options
	flag.IntVar(&o.n, "n", 1000, "number of assets to generate")
	flag.StringVar(&o.out, "out", "testdata/assets", "output directory")
	flag.IntVar(&o.minSize, "minsize", 64, "minimum blob size in bytes")
	flag.IntVar(&o.maxSize, "maxsize", 4096, "maximum blob size in bytes")
	flag.IntVar(&o.chain, "chain", 0, "average dependency chain length per asset")
	flag.Int64Var(&o.seed, "seed", time.Now().UnixNano(), "PRNG seed")
	flag.Parse()
	return o
}

// metaXML mirrors asset.Meta's shape closely enough for ParseMeta to read it
// back, without importing the asset package (this tool ships standalone).
type metaXML struct {
	XMLName       xml.Name        `xml:"AssetMeta"`
	Asset         metaXMLAsset    `xml:"Asset"`
	ProcessedInfo *processedXML   `xml:"ProcessedInfo,omitempty"`
}

type metaXMLAsset struct {
	Type string `xml:"Type"`
	Name string `xml:"Name"`
}

type processedXML struct {
	AssetHash    string               `xml:"AssetHash"`
	FullHash     string               `xml:"FullHash"`
	Dependencies []processedDepXML    `xml:"Dependencies>Dependency"`
}

type processedDepXML struct {
	FullHash  string `xml:"FullHash"`
	AssetPath string `xml:"AssetPath"`
}

func assetName(i int) string { return fmt.Sprintf("asset_%06d.bin", i) }

func main() {
	o := parseFlags()
	rnd := rand.New(rand.NewSource(o.seed))

	if err := os.MkdirAll(o.out, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "cannot create output dir:", err)
		os.Exit(1)
	}

	sizeRange := o.maxSize - o.minSize
	if sizeRange < 0 {
		fmt.Fprintln(os.Stderr, "maxsize must be >= minsize")
		os.Exit(1)
	}

	hashes := make([]string, o.n)
	for i := 0; i < o.n; i++ {
		size := o.minSize
		if sizeRange > 0 {
			size += rnd.Intn(sizeRange + 1)
		}
		blob := make([]byte, size)
		rnd.Read(blob)
		hashes[i] = fmt.Sprintf("%016x", xxhash.Sum64(blob))

		name := assetName(i)
		if err := os.WriteFile(filepath.Join(o.out, name), blob, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write blob:", err)
			os.Exit(1)
		}
	}

	for i := 0; i < o.n; i++ {
		m := metaXML{Asset: metaXMLAsset{Type: "Load", Name: ""}}

		if o.chain > 0 && i > 0 && rnd.Intn(o.chain+1) != 0 {
			dep := rnd.Intn(i)
			m.ProcessedInfo = &processedXML{
				AssetHash: hashes[i],
				FullHash:  fmt.Sprintf("%016x", xxhash.Sum64([]byte(hashes[i]+hashes[dep]))),
				Dependencies: []processedDepXML{
					{FullHash: hashes[dep], AssetPath: assetName(dep)},
				},
			}
		}

		out, err := xml.MarshalIndent(m, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "marshal meta:", err)
			os.Exit(1)
		}
		metaPath := filepath.Join(o.out, assetName(i)+".meta.xml")
		if err := os.WriteFile(metaPath, out, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write meta:", err)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stderr, "wrote %d assets to %s (seed=%d)\n", o.n, o.out, o.seed)
}

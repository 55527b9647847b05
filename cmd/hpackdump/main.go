// Command hpackdump decodes a file of length-prefixed HPACK header
// blocks and logs the header fields each one contains. Each block is
// framed as an 8-byte big-endian stream ID, a 4-byte big-endian
// length, then that many bytes of HPACK-encoded header block.
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"io"
	"log"
	"os"

	hpack "github.com/gopherlabs/hpack"
)

func main() {
	path := flag.String("in", "", "path to a file of length-prefixed HPACK header blocks")
	maxHeaderBlockBytes := flag.Uint("max-header-bytes", 1<<20, "maximum cumulative decoded header bytes per block")
	maxTableSize := flag.Uint("max-table-size", 4096, "dynamic table capacity")
	flag.Parse()

	if *path == "" {
		log.Fatal("hpackdump: -in is required")
	}
	file, err := os.Open(*path)
	if err != nil {
		log.Fatalf("hpackdump: %v", err)
	}
	defer file.Close()

	dec := hpack.NewDecoder(uint32(*maxHeaderBlockBytes), uint32(*maxTableSize), func(f hpack.HeaderField, sensitive bool) {
		log.Printf("  %s: %s (sensitive=%t)", f.Name, f.Value, sensitive)
	})

	for {
		in, err := readBlock(file)
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Fatalf("hpackdump: %v", err)
		}
		log.Printf("block on stream %d:", in.streamID)
		if _, err := dec.Write(in.data); err != nil {
			log.Fatalf("hpackdump: decompression error: %v", err)
		}
		if dec.EndHeaderBlock() {
			log.Printf("  (truncated: exceeded max-header-bytes)")
		}
	}
}

type block struct {
	streamID uint64
	data     []byte
}

func readBlock(r io.Reader) (*block, error) {
	prefix := make([]byte, 12)
	if _, err := io.ReadFull(r, prefix); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errors.New("insufficient data for block prefix")
		}
		return nil, err
	}
	streamID := binary.BigEndian.Uint64(prefix[:8])
	length := binary.BigEndian.Uint32(prefix[8:12])
	data := make([]byte, int(length))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.New("incomplete block data")
	}
	return &block{streamID: streamID, data: data}, nil
}

package discord

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// oggReader extracts logical packets from an Ogg container. Discord wants
// raw opus packets, so the page layer is peeled off here and the OpusHead /
// OpusTags header packets are skipped by the caller.
type oggReader struct {
	src      *bufio.Reader
	segments [][]byte // packets remaining from the current page
	partial  []byte   // packet continued onto the next page
}

func newOggReader(r io.Reader) *oggReader {
	return &oggReader{src: bufio.NewReader(r)}
}

const oggPageHeaderLen = 27

var oggCapture = []byte("OggS")

// NextPacket returns the next complete packet, or io.EOF at end of stream.
func (o *oggReader) NextPacket() ([]byte, error) {
	for {
		if len(o.segments) > 0 {
			pkt := o.segments[0]
			o.segments = o.segments[1:]
			return pkt, nil
		}
		if err := o.readPage(); err != nil {
			if err == io.EOF && len(o.partial) > 0 {
				return nil, fmt.Errorf("ogg: stream ends mid-packet (%d bytes pending)", len(o.partial))
			}
			return nil, err
		}
	}
}

// readPage consumes one page and appends its completed packets to o.segments.
func (o *oggReader) readPage() error {
	header := make([]byte, oggPageHeaderLen)
	if _, err := io.ReadFull(o.src, header); err != nil {
		// Only a break at an exact page boundary is a clean end of stream;
		// a partial header means the file was cut mid-page.
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("ogg: truncated page header: %w", err)
		}
		return err
	}
	if !bytes.Equal(header[:4], oggCapture) {
		return fmt.Errorf("ogg: bad capture pattern %q", header[:4])
	}
	if header[4] != 0 {
		return fmt.Errorf("ogg: unsupported stream version %d", header[4])
	}

	segCount := int(header[26])
	table := make([]byte, segCount)
	if _, err := io.ReadFull(o.src, table); err != nil {
		return fmt.Errorf("ogg: truncated segment table: %w", err)
	}

	for _, lace := range table {
		seg := make([]byte, int(lace))
		if _, err := io.ReadFull(o.src, seg); err != nil {
			return fmt.Errorf("ogg: truncated segment: %w", err)
		}
		o.partial = append(o.partial, seg...)
		// A lacing value below 255 terminates the packet.
		if lace < 255 {
			o.segments = append(o.segments, o.partial)
			o.partial = nil
		}
	}
	return nil
}

// isOpusHeaderPacket reports whether pkt is an OpusHead or OpusTags packet.
func isOpusHeaderPacket(pkt []byte) bool {
	return bytes.HasPrefix(pkt, []byte("OpusHead")) || bytes.HasPrefix(pkt, []byte("OpusTags"))
}

package aprs

import (
	"sync"

	"github.com/charmbracelet/log"

	"kissaprs/ax25"
	"kissaprs/device/kiss"
	"kissaprs/packet"
)

// Processor turns KISS frames into decoded APRS frames. Frames whose
// addressing is broken go to OnError and are dropped. Frames whose info
// field does not parse still go to OnFrame, tagged TypeUndecoded.
type Processor struct {
	Parser     *Parser
	BufferSize int // Frame limit for Write, 0 for kiss.DefaultBufferSize

	OnFrame func(packet.Frame)
	OnError func(error)

	mu        sync.Mutex
	unescaper *kiss.Unescaper
}

// NewProcessor returns a processor with a default Parser.
func NewProcessor(onFrame func(packet.Frame), onError func(error)) *Processor {
	return &Processor{Parser: NewParser(), OnFrame: onFrame, OnError: onError}
}

// Data handles one de-escaped KISS frame, command byte included.
func (p *Processor) Data(raw []byte) {
	f, err := ax25.Decode(raw)
	if err != nil {
		log.Debug("dropping frame", "err", err)
		if p.OnError != nil {
			p.OnError(err)
		}
		return
	}
	if f == nil {
		return
	}

	parser := p.Parser
	if parser == nil {
		parser = defaultParser
	}
	decoded, err := parser.Parse(*f)
	if err != nil {
		log.Debug("undecoded info field", "from", f.Source, "err", err)
		decoded = *f
		decoded.DataType = packet.TypeUndecoded
		decoded.Payload = &packet.Undecoded{Reason: err.Error()}
	}
	if p.OnFrame != nil {
		p.OnFrame(decoded)
	}
}

// Write accepts a raw KISS byte stream in any chunking and handles every
// complete frame in it. It never fails.
func (p *Processor) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.unescaper == nil {
		p.unescaper = kiss.NewUnescaper(p.BufferSize)
	}
	var frames [][]byte
	for f := range p.unescaper.Feed(b) {
		frames = append(frames, f)
	}
	p.mu.Unlock()

	for _, f := range frames {
		p.Data(f)
	}
	return len(b), nil
}

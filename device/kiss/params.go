package kiss

import (
	"time"

	"kissaprs/config"
)

// Params are TNC settings sent as KISS command frames each time the link
// comes up. Zero values are not sent, leaving the TNC's own setting.
type Params struct {
	TxDelay     time.Duration
	Persistence int
	SlotTime    time.Duration
	TxTail      time.Duration
	FullDuplex  bool
}

// ParamsFromConfig reads the [kiss] section.
func ParamsFromConfig(c config.KISSConfig) Params {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return Params{
		TxDelay:     ms(c.TxDelayMs),
		Persistence: c.Persistence,
		SlotTime:    ms(c.SlotTimeMs),
		TxTail:      ms(c.TxTailMs),
		FullDuplex:  c.FullDuplex,
	}
}

// Frames returns the command frames for the parameters that are set, in
// command order. Times go out in 10 ms units.
func (p Params) Frames() [][]byte {
	tens := func(d time.Duration) byte {
		return byte(min(d/(10*time.Millisecond), 255))
	}
	var frames [][]byte
	if p.TxDelay > 0 {
		frames = append(frames, []byte{CmdTxDelay, tens(p.TxDelay)})
	}
	if p.Persistence > 0 {
		frames = append(frames, []byte{CmdPersistence, byte(min(p.Persistence, 255))})
	}
	if p.SlotTime > 0 {
		frames = append(frames, []byte{CmdSlotTime, tens(p.SlotTime)})
	}
	if p.TxTail > 0 {
		frames = append(frames, []byte{CmdTxTail, tens(p.TxTail)})
	}
	if p.FullDuplex {
		frames = append(frames, []byte{CmdFullDuplex, 1})
	}
	return frames
}

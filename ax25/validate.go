package ax25

import "kissaprs/packet"

// Validate prepares f for encoding. It requires a source and destination,
// limits the repeater path to MaxRepeaters, defaults the protocol to
// PIDNoLayer3 and sets the extension bits so that only the last address
// of the chain carries one.
func Validate(f *packet.Frame) error {
	if f.Source.IsZero() {
		return packet.FormatErrorf("source address is missing")
	}
	if f.Destination.IsZero() {
		return packet.FormatErrorf("destination address is missing")
	}
	if len(f.RepeaterPath) > MaxRepeaters {
		return packet.FormatErrorf("repeater path has %d entries, at most %d allowed", len(f.RepeaterPath), MaxRepeaters)
	}
	if f.Protocol == 0 {
		f.Protocol = PIDNoLayer3
	}

	f.Destination.ExtensionBit = false
	f.Source.ExtensionBit = len(f.RepeaterPath) == 0
	for i := range f.RepeaterPath {
		f.RepeaterPath[i].ExtensionBit = i == len(f.RepeaterPath)-1
	}
	return nil
}

package kiss

// Escape wraps an already-built frame for the wire: a leading FEND so the
// receiver syncs, the escaped bytes, and a closing FEND.
func Escape(frame []byte) []byte {
	out := make([]byte, 0, len(frame)+len(frame)/16+4)
	out = append(out, FEND)
	out = appendEscaped(out, frame)
	return append(out, FEND)
}

// EscapeCommand is Escape with a KISS command byte placed in front of frame.
func EscapeCommand(cmd byte, frame []byte) []byte {
	out := make([]byte, 0, len(frame)+len(frame)/16+5)
	out = append(out, FEND)
	out = appendEscaped(out, []byte{cmd})
	out = appendEscaped(out, frame)
	return append(out, FEND)
}

func appendEscaped(out, frame []byte) []byte {
	for _, b := range frame {
		switch b {
		case FEND:
			out = append(out, FESC, TFEND)
		case FESC:
			out = append(out, FESC, TFESC)
		default:
			out = append(out, b)
		}
	}
	return out
}

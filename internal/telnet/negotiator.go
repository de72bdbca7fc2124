// Package telnet implements RFC 1143's "Q method" of telnet option
// negotiation: one independent two-variable state machine per option,
// per direction (what we do, what the peer does), so that repeated or
// unsolicited WILL/WONT/DO/DONT never produces an infinite negotiation
// loop.
//
// The byte-level IAC/SB framing this package consumes comes from
// internal/transport.Conn; this package only ever sees already-decoded
// transport.Event values.
package telnet

import (
	"strconv"
	"strings"

	"github.com/dtg01100/tn5250r-go/internal/logging"
	"github.com/dtg01100/tn5250r-go/internal/protoerr"
	"github.com/dtg01100/tn5250r-go/internal/transport"
)

// Option codes this negotiator understands by name. Unlisted options
// are still negotiated generically (always refused) per RFC 1143.
const (
	OptBinary     byte = 0
	OptEcho       byte = 1
	OptSGA        byte = 3
	OptTermType   byte = 24
	OptEOR        byte = 25
	OptNAWS       byte = 31
	OptNewEnviron byte = 39
	OptCharset    byte = 42
	OptTN3270E    byte = 40
)

const (
	termTypeIS   byte = 0
	termTypeSend byte = 1
)

// RFC 1572 NEW-ENVIRON subnegotiation byte codes. The message-type byte
// (IS/SEND/INFO) and the per-variable type byte (VAR/VALUE/USERVAR)
// share the same small integer space but never appear in the same
// position, so they're kept as separate const blocks for clarity.
const (
	environIS   byte = 0
	environSend byte = 1
)

const (
	envVAR     byte = 0
	envValue   byte = 1
	envUSERVAR byte = 3
)

// RFC 2066 CHARSET subnegotiation byte codes.
const (
	charsetRequest  byte = 1
	charsetAccepted byte = 2
	charsetRejected byte = 3
)

// qState is one of RFC 1143's four states for a single option in a
// single direction.
type qState int

const (
	qNo qState = iota
	qWantYes
	qWantNo
	qYes
)

// side tracks one direction's (local "do I do X" or remote "does peer
// do X") negotiation state plus the RFC 1143 "queued opposite request"
// flag used while in WantNo/WantYes.
type side struct {
	state  qState
	queued bool
}

// Sender is the subset of transport.Conn the negotiator needs to reply
// on the wire.
type Sender interface {
	WriteCommand(kind, option byte) error
	WriteSubnegotiation(option byte, data []byte) error
}

// Negotiator runs the Q-method state machine for every option the
// session cares about, plus generic refusal for anything else.
type Negotiator struct {
	sender Sender

	local  [256]side // options we offer to the peer (WILL/WONT)
	remote [256]side // options we ask the peer to use (DO/DONT)

	supported map[byte]bool // options we are willing to enable at all

	TermType   string // negotiated peer terminal-type string, if any
	TermModel  byte   // parsed IBM model digit, e.g. '2'
	TermExtAtr bool   // parsed extended-attribute flag
	NAWSWidth  int
	NAWSHeight int

	localWidth  int // our own window size, reported via SendNAWS
	localHeight int

	SendTermType string  // our own terminal-type string to offer on SEND
	Env          EnvVars // NEW-ENVIRON values to offer on SEND
	Charsets     []string // CCSIDs we accept, most preferred first, e.g. {"CP037"}

	eorNegotiated func(bool) // callback invoked when EOR state settles to YES
}

// EnvVars holds the NEW-ENVIRON (RFC 1572) values a host's SEND request
// is answered with: USER is a well-known telnet var; DEVNAME, KBDTYPE,
// CODEPAGE, and CHARSET are IBM 5250-specific USERVARs spec.md's
// configuration table carries for exactly this purpose.
type EnvVars struct {
	User     string
	DevName  string
	KbdType  string
	Codepage string
	Charset  string
}

// New returns a Negotiator that will accept the given options when the
// peer proposes them or we propose them, and refuse everything else.
func New(sender Sender, supported []byte, sendTermType string, env EnvVars, onEOR func(bool)) *Negotiator {
	n := &Negotiator{
		sender:        sender,
		supported:     make(map[byte]bool, len(supported)),
		SendTermType:  sendTermType,
		Env:           env,
		Charsets:      []string{"CP037", "IBM037"},
		eorNegotiated: onEOR,
	}
	for _, o := range supported {
		n.supported[o] = true
	}
	return n
}

// RequestLocal asks to enable an option we offer (sends WILL).
func (n *Negotiator) RequestLocal(option byte) error {
	s := &n.local[option]
	switch s.state {
	case qNo:
		s.state = qWantYes
		return n.sender.WriteCommand(transport.WILL, option)
	case qWantNo:
		s.queued = true
		return nil
	default:
		return nil // already YES or already WantYes
	}
}

// RequestRemote asks the peer to enable an option (sends DO).
func (n *Negotiator) RequestRemote(option byte) error {
	s := &n.remote[option]
	switch s.state {
	case qNo:
		s.state = qWantYes
		return n.sender.WriteCommand(transport.DO, option)
	case qWantNo:
		s.queued = true
		return nil
	default:
		return nil
	}
}

// HandleEvent processes one decoded transport.Event. Only EventCommand
// and EventSubnegotiation are meaningful here; callers forward other
// event types (EventData, EventRecordBoundary) to the parser directly.
func (n *Negotiator) HandleEvent(ev transport.Event) error {
	switch ev.Type {
	case transport.EventCommand:
		switch ev.Kind {
		case transport.WILL:
			return n.recvWill(ev.Option)
		case transport.WONT:
			return n.recvWont(ev.Option)
		case transport.DO:
			return n.recvDo(ev.Option)
		case transport.DONT:
			return n.recvDont(ev.Option)
		}
	case transport.EventSubnegotiation:
		return n.handleSubnegotiation(ev.Option, ev.SBData)
	}
	return nil
}

// recvWill implements RFC 1143 "Receipt of WILL" for the remote side.
func (n *Negotiator) recvWill(option byte) error {
	s := &n.remote[option]
	switch s.state {
	case qNo:
		if n.supported[option] {
			s.state = qYes
			n.onRemoteYes(option)
			return n.sender.WriteCommand(transport.DO, option)
		}
		return n.sender.WriteCommand(transport.DONT, option)
	case qWantYes:
		s.state = qYes
		n.onRemoteYes(option)
		if s.queued {
			s.queued = false
			s.state = qWantNo
			return n.sender.WriteCommand(transport.DONT, option)
		}
		return nil
	case qWantNo:
		if s.queued {
			s.queued = false
			s.state = qYes
			n.onRemoteYes(option)
			return nil
		}
		s.state = qNo
		return nil
	case qYes:
		// Peer re-confirmed; no reply required (RFC 1143 avoids loops
		// here rather than re-acking every WILL).
		return nil
	}
	return nil
}

func (n *Negotiator) recvWont(option byte) error {
	s := &n.remote[option]
	switch s.state {
	case qYes:
		s.state = qNo
		n.onRemoteNo(option)
		return n.sender.WriteCommand(transport.DONT, option)
	case qWantYes:
		s.state = qNo
		s.queued = false
		n.onRemoteNo(option)
		return nil
	case qWantNo:
		s.state = qNo
		s.queued = false
		n.onRemoteNo(option)
		return nil
	case qNo:
		return nil
	}
	return nil
}

func (n *Negotiator) recvDo(option byte) error {
	s := &n.local[option]
	switch s.state {
	case qNo:
		if n.supported[option] {
			s.state = qYes
			n.onLocalYes(option)
			return n.sender.WriteCommand(transport.WILL, option)
		}
		return n.sender.WriteCommand(transport.WONT, option)
	case qWantYes:
		s.state = qYes
		n.onLocalYes(option)
		if s.queued {
			s.queued = false
			s.state = qWantNo
			return n.sender.WriteCommand(transport.WONT, option)
		}
		return nil
	case qWantNo:
		if s.queued {
			s.queued = false
			s.state = qYes
			n.onLocalYes(option)
			return nil
		}
		s.state = qNo
		return nil
	case qYes:
		return nil
	}
	return nil
}

func (n *Negotiator) recvDont(option byte) error {
	s := &n.local[option]
	switch s.state {
	case qYes:
		s.state = qNo
		n.onLocalNo(option)
		return n.sender.WriteCommand(transport.WONT, option)
	case qWantYes:
		s.state = qNo
		s.queued = false
		n.onLocalNo(option)
		return nil
	case qWantNo:
		s.state = qNo
		s.queued = false
		n.onLocalNo(option)
		return nil
	case qNo:
		return nil
	}
	return nil
}

func (n *Negotiator) onRemoteYes(option byte) {
	if option == OptEOR && n.eorNegotiated != nil {
		n.eorNegotiated(n.remote[OptEOR].state == qYes && n.local[OptEOR].state == qYes)
	}
}

func (n *Negotiator) onRemoteNo(option byte) {
	if option == OptEOR && n.eorNegotiated != nil {
		n.eorNegotiated(false)
	}
}

func (n *Negotiator) onLocalYes(option byte) {
	if option == OptEOR && n.eorNegotiated != nil {
		n.eorNegotiated(n.remote[OptEOR].state == qYes && n.local[OptEOR].state == qYes)
	}
	if option == OptNAWS {
		_ = n.SendNAWS(n.localWidth, n.localHeight)
	}
}

func (n *Negotiator) onLocalNo(option byte) {
	if option == OptEOR && n.eorNegotiated != nil {
		n.eorNegotiated(false)
	}
}

// handleSubnegotiation processes SB bodies for options this package
// understands specially; anything else is logged and ignored.
func (n *Negotiator) handleSubnegotiation(option byte, data []byte) error {
	switch option {
	case OptTermType:
		if len(data) == 0 {
			return protoerr.New(protoerr.MalformedSubnegotiation, "telnet.handleSubnegotiation", nil)
		}
		switch data[0] {
		case termTypeSend:
			return n.sender.WriteSubnegotiation(OptTermType, append([]byte{termTypeIS}, []byte(n.SendTermType)...))
		case termTypeIS:
			n.TermType = string(data[1:])
			n.parseIBMTerminalType(n.TermType)
		default:
			return protoerr.New(protoerr.MalformedSubnegotiation, "telnet.handleSubnegotiation", nil)
		}
	case OptNAWS:
		if len(data) < 4 {
			return protoerr.New(protoerr.MalformedSubnegotiation, "telnet.handleSubnegotiation", nil)
		}
		n.NAWSWidth = int(data[0])<<8 | int(data[1])
		n.NAWSHeight = int(data[2])<<8 | int(data[3])
	case OptNewEnviron:
		if len(data) == 0 {
			return protoerr.New(protoerr.MalformedSubnegotiation, "telnet.handleSubnegotiation", nil)
		}
		if data[0] == environSend {
			return n.sender.WriteSubnegotiation(OptNewEnviron, n.encodeEnvironIS())
		}
	case OptCharset:
		if len(data) == 0 || data[0] != charsetRequest {
			return protoerr.New(protoerr.MalformedSubnegotiation, "telnet.handleSubnegotiation", nil)
		}
		return n.handleCharsetRequest(data[1:])
	default:
		logging.Debug("telnet: unhandled subnegotiation option %d (%d bytes)", option, len(data))
	}
	return nil
}

// SetLocalSize records our own window size, used as the SendNAWS
// payload both for the automatic send when NAWS settles to YES
// locally and for later resize notifications.
func (n *Negotiator) SetLocalSize(width, height int) {
	n.localWidth, n.localHeight = width, height
}

// SendNAWS encodes and sends our own NAWS (RFC 1073) subnegotiation
// reporting the current window size. Call it once NAWS settles to YES
// on both sides and again whenever the terminal resizes; it is a
// no-op if NAWS was never negotiated local-to-remote.
func (n *Negotiator) SendNAWS(width, height int) error {
	n.localWidth, n.localHeight = width, height
	if n.local[OptNAWS].state != qYes {
		return nil
	}
	data := []byte{
		byte(width >> 8), byte(width),
		byte(height >> 8), byte(height),
	}
	return n.sender.WriteSubnegotiation(OptNAWS, data)
}

// encodeEnvironIS builds an IS reply listing USER as a standard VAR and
// DEVNAME/KBDTYPE/CODEPAGE/CHARSET as USERVARs, the set spec.md's
// configuration table names.
func (n *Negotiator) encodeEnvironIS() []byte {
	out := []byte{environIS}
	add := func(varType byte, name, value string) {
		out = append(out, varType)
		out = append(out, []byte(name)...)
		out = append(out, envValue)
		out = append(out, []byte(value)...)
	}
	add(envVAR, "USER", n.Env.User)
	add(envUSERVAR, "DEVNAME", n.Env.DevName)
	add(envUSERVAR, "KBDTYPE", n.Env.KbdType)
	add(envUSERVAR, "CODEPAGE", n.Env.Codepage)
	add(envUSERVAR, "CHARSET", n.Env.Charset)
	return out
}

// handleCharsetRequest implements RFC 2066 CHARSET REQUEST: offered is a
// separator byte followed by a separator-delimited list of charset
// names. The earliest entry of n.Charsets (most preferred) that appears
// in the offer, compared case-insensitively, wins; otherwise the whole
// offer is rejected.
func (n *Negotiator) handleCharsetRequest(offered []byte) error {
	if len(offered) == 0 {
		return n.sender.WriteSubnegotiation(OptCharset, []byte{charsetRejected})
	}
	sep := offered[0]
	names := strings.Split(string(offered[1:]), string(sep))
	for _, want := range n.Charsets {
		for _, got := range names {
			if strings.EqualFold(got, want) {
				return n.sender.WriteSubnegotiation(OptCharset, append([]byte{charsetAccepted}, []byte(got)...))
			}
		}
	}
	return n.sender.WriteSubnegotiation(OptCharset, []byte{charsetRejected})
}

// parseIBMTerminalType parses strings of the form "IBM-nnnn-m" or
// "IBM-nnnn-m-E", grounded on rcornwell-S370's determineTerm: nnnn is
// the device family, m the model digit, trailing "-E" marks extended
// attribute support.
func (n *Negotiator) parseIBMTerminalType(s string) {
	if at := strings.Index(s, "@"); at >= 0 {
		s = s[:at]
	}
	if !strings.HasPrefix(s, "IBM-") || len(s) < 9 {
		return
	}
	n.TermExtAtr = false
	if s[8] != '-' {
		return
	}
	if len(s) < 10 {
		return
	}
	modelDigit := s[9]
	if _, err := strconv.Atoi(string(modelDigit)); err != nil {
		return
	}
	n.TermModel = modelDigit
	if strings.HasSuffix(s, "-E") {
		n.TermExtAtr = true
	}
}

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"kissaprs/aprs"
	"kissaprs/config"
	"kissaprs/device/aprsdata"
	"kissaprs/device/kiss"
	"kissaprs/endpoint"
	"kissaprs/packet"
	"kissaprs/request"
	"kissaprs/ui/footer"
	"kissaprs/ui/header"
	mapview "kissaprs/ui/map"
	"kissaprs/ui/msgbar"
	"kissaprs/ui/sidebar"
)

// Link is a KISS endpoint or server.
type Link interface {
	Enable()
	Disable()
	State() endpoint.State
	Subscribe(kiss.Handler) (cancel func())
}

// --- Constants for Layout ---
const (
	sidebarWidth = 30
	msgbarHeight = msgbar.Height
)

// linkMsg reports a change on the KISS link.
type linkMsg struct {
	state string
	err   error
}

// decodeErrMsg reports a frame that could not be decoded.
type decodeErrMsg struct{ err error }

// model holds the application's state
type model struct {
	width  int
	height int
	config config.Config

	headerModel  header.Model
	mapModel     mapview.Model
	msgbarModel  msgbar.Model
	footerModel  footer.Model
	sidebarModel sidebar.Model

	events <-chan tea.Msg

	err error
}

// initialModel creates the starting model
func initialModel(conf config.Config, events <-chan tea.Msg) model {
	mapMod, err := mapview.New(conf)
	if err != nil {
		return model{err: err}
	}

	footerMod := footer.New(endpoint.Idle.String())
	footerMod.SetZoom(mapMod.GetZoomLevel())

	return model{
		width:        80,
		height:       60,
		config:       conf,
		headerModel:  header.New(conf.Station.Callsign, linkLabel(conf.Interface)),
		mapModel:     mapMod,
		msgbarModel:  msgbar.New(conf.Station.Callsign),
		footerModel:  footerMod,
		sidebarModel: sidebar.New(conf),
		events:       events,
	}
}

// listenForEvents is a tea.Cmd that waits for the next link event
func (m model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			return fmt.Errorf("link closed")
		}
		return msg
	}
}

// speakMessageCmd runs the 'say' command as a non-blocking side effect
func speakMessageCmd(msg string) tea.Cmd {
	return func() tea.Msg {
		cmd := exec.Command("say", msg)
		if err := cmd.Start(); err != nil {
			log.Debug("say failed", "err", err)
			return nil
		}
		go cmd.Wait()
		return nil
	}
}

func (m model) Init() tea.Cmd {
	return m.listenForEvents()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.err != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
		return m, nil
	}

	var (
		headerCmd  tea.Cmd
		mapCmd     tea.Cmd
		msgbarCmd  tea.Cmd
		footerCmd  tea.Cmd
		sidebarCmd tea.Cmd
		cmds       []tea.Cmd
	)

	switch msg := msg.(type) {
	case packet.Frame:
		m.footerModel.SetLastPacket(msg.Station())
		m.sidebarModel.AddFrame(msg)
		m.mapModel, mapCmd = m.mapModel.Update(msg)
		m.headerModel.SetStations(m.mapModel.Stations())
		cmds = append(cmds, mapCmd)

		if pm, ok := msg.Payload.(*packet.Message); ok {
			if m.config.Msgbar.Say {
				cmds = append(cmds, speakMessageCmd(fmt.Sprintf("Message from %s to %s: %s", msg.Station(), pm.Addressee, pm.Text)))
			}
			m.msgbarModel, msgbarCmd = m.msgbarModel.Update(msg)
			cmds = append(cmds, msgbarCmd)
		}
		cmds = append(cmds, m.listenForEvents())

	case linkMsg:
		m.footerModel.SetLink(msg.state)
		if msg.err != nil {
			m.footerModel.CountError()
		}
		cmds = append(cmds, m.listenForEvents())

	case decodeErrMsg:
		m.footerModel.CountError()
		cmds = append(cmds, m.listenForEvents())

	case error:
		m.err = msg
		log.Error("fatal error in update", "err", msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 1
		footerHeight := 1
		mainHeight := max(m.height-headerHeight-msgbarHeight-footerHeight, 1)
		mapWidth := m.width - sidebarWidth

		headerMsg := tea.WindowSizeMsg{Width: m.width, Height: headerHeight}
		m.headerModel, headerCmd = m.headerModel.Update(headerMsg)

		sidebarMsg := tea.WindowSizeMsg{Width: sidebarWidth, Height: mainHeight}
		m.sidebarModel, sidebarCmd = m.sidebarModel.Update(sidebarMsg)

		mapMsg := tea.WindowSizeMsg{Width: mapWidth, Height: mainHeight}
		m.mapModel, mapCmd = m.mapModel.Update(mapMsg)

		msgbarMsg := tea.WindowSizeMsg{Width: m.width, Height: msgbarHeight}
		m.msgbarModel, msgbarCmd = m.msgbarModel.Update(msgbarMsg)

		footerMsg := tea.WindowSizeMsg{Width: m.width, Height: footerHeight}
		m.footerModel, footerCmd = m.footerModel.Update(footerMsg)

		cmds = append(cmds, headerCmd, sidebarCmd, mapCmd, msgbarCmd, footerCmd)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		default:
			m.mapModel, mapCmd = m.mapModel.Update(msg)
			cmds = append(cmds, mapCmd)
			m.footerModel.SetZoom(m.mapModel.GetZoomLevel())
		}

	default:
		m.headerModel, headerCmd = m.headerModel.Update(msg)
		m.mapModel, mapCmd = m.mapModel.Update(msg)
		m.msgbarModel, msgbarCmd = m.msgbarModel.Update(msg)
		m.footerModel, footerCmd = m.footerModel.Update(msg)
		m.sidebarModel, sidebarCmd = m.sidebarModel.Update(msg)
		cmds = append(cmds, headerCmd, mapCmd, msgbarCmd, footerCmd, sidebarCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.err != nil {
		errorStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Border(lipgloss.DoubleBorder(), true).
			BorderForeground(lipgloss.Color("9")).
			Padding(1).
			Align(lipgloss.Center, lipgloss.Center)
		return errorStyle.Render(
			"Error:\n\n" + m.err.Error() +
				"\n\nPress any key to quit.",
		)
	}

	middleStack := lipgloss.JoinHorizontal(lipgloss.Top,
		m.sidebarModel.View(),
		m.mapModel.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerModel.View(),
		middleStack,
		m.msgbarModel.View(),
		m.footerModel.View(),
	)
}

// newLink builds the KISS side from the interface config.
func newLink(conf config.Config) (Link, error) {
	opts := []kiss.Option{
		kiss.WithBufferSize(conf.KISS.BufferSize),
		kiss.WithParams(kiss.ParamsFromConfig(conf.KISS)),
		kiss.WithEndpointOptions(endpoint.WithRetryDelay(conf.Endpoint.RetryDelay())),
	}
	if strings.EqualFold(conf.Interface.Type, "server") {
		return kiss.NewServer(conf.Interface.Device, opts...), nil
	}
	d, err := kiss.NewDialer(conf.Interface)
	if err != nil {
		return nil, err
	}
	return kiss.NewEndpoint("kiss", d, opts...), nil
}

// linkLabel describes the interface for the header, e.g. "tcp localhost:8001".
func linkLabel(c config.InterfaceConfig) string {
	return strings.ToLower(c.Type) + " " + c.Device
}

// frameSummary is what gets forwarded to an APRS data server.
type frameSummary struct {
	Header   string `json:"header"`
	DataType string `json:"dataType"`
	Info     string `json:"info"`
}

// setupLogging sends the log to conf.Log.File; the terminal belongs to the UI.
func setupLogging(conf config.Config) (*os.File, error) {
	level, err := log.ParseLevel(conf.Log.Level)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(conf.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := log.NewWithOptions(f, log.Options{ReportTimestamp: true, Level: level})
	log.SetDefault(logger)
	return f, nil
}

// loadConfig reads path, applies the command line overrides and validates
// the result.
func loadConfig(path, logLevel, device string) (config.Config, error) {
	conf, err := config.Load(path)
	if err != nil {
		return conf, err
	}
	if logLevel != "" {
		conf.Log.Level = logLevel
	}
	if device != "" {
		conf.Interface.Device = device
	}
	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid config: %w", err)
	}
	return conf, nil
}

// uiQueue carries link and packet events to the UI. Posting never blocks;
// when the UI falls behind, messages are dropped and counted.
type uiQueue struct {
	ch      chan tea.Msg
	dropped atomic.Uint64
}

func newUIQueue(size int) *uiQueue {
	return &uiQueue{ch: make(chan tea.Msg, size)}
}

func (q *uiQueue) post(msg tea.Msg) {
	select {
	case q.ch <- msg:
	default:
		if n := q.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Warn("UI queue full, dropping events", "dropped", n)
		}
	}
}

func main() {
	configPath := flag.StringP("config", "c", config.DefaultPath, "path to the TOML config file")
	logLevel := flag.String("log-level", "", "override the configured log level")
	device := flag.String("device", "", "override the configured KISS device or address")
	flag.Parse()

	conf, err := loadConfig(*configPath, *logLevel, *device)
	if err != nil {
		log.Fatal("failed to load config", "path", *configPath, "err", err)
	}

	logFile, err := setupLogging(conf)
	if err != nil {
		log.Fatal("failed to set up logging", "err", err)
	}
	defer logFile.Close()

	link, err := newLink(conf)
	if err != nil {
		log.Fatal("failed to create interface", "err", err)
	}

	var data *aprsdata.Client
	if conf.APRSData.Address != "" {
		data = aprsdata.NewClient(conf.APRSData.Address,
			aprsdata.WithEndpointOptions(endpoint.WithRetryDelay(conf.Endpoint.RetryDelay())),
			aprsdata.WithRequestOptions(request.WithTimeout(conf.Request.Timeout())),
		)
		data.Subscribe(func(msg request.Message) {
			log.Debug("aprs data message", "type", msg.Type, "id", msg.MsgID)
		})
		data.Enable()
		defer data.Close()
	}

	events := newUIQueue(256)
	proc := aprs.NewProcessor(
		func(f packet.Frame) {
			events.post(f)
			if data != nil {
				err := data.Notify("aprsData", frameSummary{
					Header:   f.Header.String(),
					DataType: f.DataType.String(),
					Info:     f.Info,
				})
				if err != nil {
					log.Debug("aprs data not forwarded", "err", err)
				}
			}
		},
		func(err error) { events.post(decodeErrMsg{err}) },
	)
	proc.BufferSize = conf.KISS.BufferSize

	cancel := link.Subscribe(func(ev kiss.Event) {
		switch ev.Kind {
		case kiss.Data:
			proc.Data(ev.Frame)
		case kiss.Error:
			log.Warn("link error", "err", ev.Err)
			events.post(linkMsg{state: ev.Kind.String(), err: ev.Err})
		default:
			log.Info("link", "event", ev.Kind)
			events.post(linkMsg{state: ev.Kind.String()})
		}
	})
	link.Enable()

	p := tea.NewProgram(initialModel(conf, events.ch), tea.WithAltScreen())
	_, err = p.Run()

	// Nothing reads events any more.
	cancel()
	link.Disable()
	if err != nil {
		log.Error("program exited", "err", err)
		os.Exit(1)
	}
}

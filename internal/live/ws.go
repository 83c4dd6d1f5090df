// Package live sirve el panel de revisión por websocket: una conexión es una
// pestaña del panel, con su propio cliente de sesión y su propio Dashboard.
package live

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"referral-purchase-service/internal/backend"
	"referral-purchase-service/internal/dashboard"
	"referral-purchase-service/internal/service"
	"referral-purchase-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout = 10 * time.Second
	pingPeriod   = 50 * time.Second
	readLimit    = 64 * 1024
)

// ClientMsg es lo que manda el navegador.
type ClientMsg struct {
	Type     string `json:"type"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Term     string `json:"term,omitempty"`
	ID       string `json:"id,omitempty"`
}

// ServerMsg es lo que recibe el navegador: fotos del estado o una exportación.
type ServerMsg struct {
	Type     string           `json:"type"`
	State    *dashboard.State `json:"state,omitempty"`
	Token    string           `json:"token,omitempty"`
	Filename string           `json:"filename,omitempty"`
	Data     string           `json:"data,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type Server struct {
	auth    *service.AuthService
	storage backend.Storage
	table   backend.Table
	opts    dashboard.Options
	upgr    websocket.Upgrader
}

// NewServer acepta conexiones sin Origin o desde uno de origins.
func NewServer(auth *service.AuthService, storage backend.Storage, table backend.Table, opts dashboard.Options, origins []string) *Server {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Server{
		auth:    auth,
		storage: storage,
		table:   table,
		opts:    opts,
		upgr: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Handle es GET /admin/live. ?token= retoma la sesión de otra pestaña.
func (s *Server) Handle(c *gin.Context) {
	wc, err := s.upgr.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("upgrade websocket fallido")
		return
	}

	sc := session.NewClient(s.auth, c.Query("token"))
	defer sc.Close()

	d := dashboard.New(backend.Client{Sessions: sc, Storage: s.storage, Table: s.table}, s.opts)
	d.Start()

	out := make(chan ServerMsg, 4)
	writerDone := make(chan struct{})
	go s.write(wc, d.Updates(), out, writerDone)

	err = s.read(wc, d, out)
	d.Close()
	<-writerDone
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Debug().Err(err).Msg("conexión del panel terminada")
	}
}

func (s *Server) read(wc *websocket.Conn, d *dashboard.Dashboard, out chan<- ServerMsg) error {
	wc.SetReadLimit(readLimit)
	_ = wc.SetReadDeadline(time.Now().Add(pingPeriod + writeTimeout))
	wc.SetPongHandler(func(string) error {
		return wc.SetReadDeadline(time.Now().Add(pingPeriod + writeTimeout))
	})

	for {
		_, raw, err := wc.ReadMessage()
		if err != nil {
			return err
		}
		var msg ClientMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Msg("mensaje del panel ilegible")
			continue
		}
		dispatch(d, msg, out)
	}
}

func dispatch(d *dashboard.Dashboard, msg ClientMsg, out chan<- ServerMsg) {
	switch msg.Type {
	case "signIn":
		d.SignIn(msg.Email, msg.Password)
	case "signOut":
		d.SignOut()
	case "search":
		d.Search(msg.Term)
	case "openImage":
		d.OpenImage(msg.ID)
	case "closeImage":
		d.CloseImage()
	case "export":
		if d.State().Status != dashboard.StatusAuthenticated {
			return
		}
		name, data, err := d.Export()
		if err != nil {
			log.Error().Err(err).Msg("error generando la exportación")
			send(out, ServerMsg{Type: "export", Error: "Error al exportar"})
			return
		}
		send(out, ServerMsg{Type: "export", Filename: name, Data: base64.StdEncoding.EncodeToString(data)})
	default:
		log.Debug().Str("type", msg.Type).Msg("mensaje del panel desconocido")
	}
}

// send no bloquea: si el escritor ya terminó el mensaje se descarta.
func send(out chan<- ServerMsg, msg ServerMsg) {
	select {
	case out <- msg:
	default:
		log.Warn().Str("type", msg.Type).Msg("mensaje al panel descartado")
	}
}

// write es el único escritor de la conexión. Termina cuando el Dashboard cierra Updates.
func (s *Server) write(wc *websocket.Conn, updates <-chan dashboard.State, out <-chan ServerMsg, done chan<- struct{}) {
	defer close(done)
	defer wc.Close()
	t := time.NewTicker(pingPeriod)
	defer t.Stop()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				_ = wc.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = wc.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := writeJSON(wc, stateMsg(st)); err != nil {
				return
			}
		case msg := <-out:
			if err := writeJSON(wc, msg); err != nil {
				return
			}
		case <-t.C:
			_ = wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := wc.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func stateMsg(st dashboard.State) ServerMsg {
	msg := ServerMsg{Type: "state", State: &st}
	if st.Session != nil {
		msg.Token = st.Session.Token
	}
	return msg
}

func writeJSON(wc *websocket.Conn, v interface{}) error {
	_ = wc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wc.WriteJSON(v)
}

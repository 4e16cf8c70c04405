// Package httpapi exposes the subset of the command set described in §6
// over HTTP/JSON, for operators and scripts that would rather not speak
// the binary wire protocol.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/clients"
	"github.com/ericlarwa/gridline/internal/dispatch"
	"github.com/ericlarwa/gridline/internal/id"
	"github.com/ericlarwa/gridline/internal/wire"
)

// Server adapts dispatch.Dispatcher to net/http, mapping wire.Kind onto
// HTTP status codes the way §6 specifies.
type Server struct {
	dispatcher   *dispatch.Dispatcher
	clients      *clients.Manager
	tokens       *auth.TokenIssuer
	log          *zap.Logger
	authDisabled bool
	router       chi.Router
}

func NewServer(d *dispatch.Dispatcher, cm *clients.Manager, tokens *auth.TokenIssuer, authDisabled bool, log *zap.Logger) *Server {
	s := &Server{dispatcher: d, clients: cm, tokens: tokens, authDisabled: authDisabled, log: log}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.authenticate)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) { writeOK(w, []byte(`"gridline"`)) })
	r.Get("/ping", s.handlePing)
	r.Get("/stats", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		return wire.GetStats{}, nil
	}))
	r.Get("/me", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		return wire.GetMe{}, nil
	}))
	r.Get("/clients", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		return wire.GetClients{}, nil
	}))
	r.Get("/clients/{clientID}", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		cid, err := parseUint32(chi.URLParam(r, "clientID"))
		if err != nil {
			return nil, err
		}
		return wire.GetClient{ClientID: cid}, nil
	}))

	r.Post("/users/login", s.handleLogin)
	r.Post("/users/logout", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		return wire.LogoutUser{}, nil
	}))
	r.Post("/users", s.wrap(s.decodeCreateUser))
	r.Delete("/users/{userID}", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		uid, err := parseUint32(chi.URLParam(r, "userID"))
		if err != nil {
			return nil, err
		}
		return wire.DeleteUser{UserID: uid}, nil
	}))
	r.Patch("/users/{userID}", s.wrap(s.decodeUpdateUser))
	r.Put("/users/{userID}/permissions", s.wrap(s.decodeUpdatePermissions))
	r.Put("/users/{userID}/password", s.wrap(s.decodeChangePassword))

	r.Post("/streams", s.wrap(s.decodeCreateStream))
	r.Get("/streams", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		return wire.GetStreams{}, nil
	}))
	r.Get("/streams/{streamID}", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, err := parseIdentifierParam(r, "streamID")
		if err != nil {
			return nil, err
		}
		return wire.GetStream{StreamID: sid}, nil
	}))
	r.Patch("/streams/{streamID}", s.wrap(s.decodeUpdateStream))
	r.Delete("/streams/{streamID}", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, err := parseIdentifierParam(r, "streamID")
		if err != nil {
			return nil, err
		}
		return wire.DeleteStream{StreamID: sid}, nil
	}))

	r.Post("/streams/{streamID}/topics", s.wrap(s.decodeCreateTopic))
	r.Get("/streams/{streamID}/topics", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, err := parseIdentifierParam(r, "streamID")
		if err != nil {
			return nil, err
		}
		return wire.GetTopics{StreamID: sid}, nil
	}))
	r.Get("/streams/{streamID}/topics/{topicID}", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, tid, err := parseStreamTopicParams(r)
		if err != nil {
			return nil, err
		}
		return wire.GetTopic{StreamID: sid, TopicID: tid}, nil
	}))
	r.Patch("/streams/{streamID}/topics/{topicID}", s.wrap(s.decodeUpdateTopic))
	r.Delete("/streams/{streamID}/topics/{topicID}", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, tid, err := parseStreamTopicParams(r)
		if err != nil {
			return nil, err
		}
		return wire.DeleteTopic{StreamID: sid, TopicID: tid}, nil
	}))

	r.Post("/streams/{streamID}/topics/{topicID}/partitions", s.wrap(s.decodeCreatePartitions))
	r.Delete("/streams/{streamID}/topics/{topicID}/partitions", s.wrap(s.decodeDeletePartitions))

	r.Post("/streams/{streamID}/topics/{topicID}/messages", s.wrap(s.decodeSendMessages))
	r.Get("/streams/{streamID}/topics/{topicID}/messages", s.wrap(s.decodePollMessages))

	r.Put("/streams/{streamID}/topics/{topicID}/consumer-offsets", s.wrap(s.decodeStoreConsumerOffset))
	r.Get("/streams/{streamID}/topics/{topicID}/consumer-offsets", s.wrap(s.decodeGetConsumerOffset))

	r.Post("/streams/{streamID}/topics/{topicID}/consumer-groups", s.wrap(s.decodeCreateConsumerGroup))
	r.Get("/streams/{streamID}/topics/{topicID}/consumer-groups", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, tid, err := parseStreamTopicParams(r)
		if err != nil {
			return nil, err
		}
		return wire.GetConsumerGroups{StreamID: sid, TopicID: tid}, nil
	}))
	r.Get("/streams/{streamID}/topics/{topicID}/consumer-groups/{groupID}", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, tid, gid, err := parseGroupParams(r)
		if err != nil {
			return nil, err
		}
		return wire.GetConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
	}))
	r.Delete("/streams/{streamID}/topics/{topicID}/consumer-groups/{groupID}", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, tid, gid, err := parseGroupParams(r)
		if err != nil {
			return nil, err
		}
		return wire.DeleteConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
	}))
	r.Post("/streams/{streamID}/topics/{topicID}/consumer-groups/{groupID}/members", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, tid, gid, err := parseGroupParams(r)
		if err != nil {
			return nil, err
		}
		return wire.JoinConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
	}))
	r.Delete("/streams/{streamID}/topics/{topicID}/consumer-groups/{groupID}/members", s.wrap(func(ctx *auth.Context, r *http.Request) (wire.Command, error) {
		sid, tid, gid, err := parseGroupParams(r)
		if err != nil {
			return nil, err
		}
		return wire.LeaveConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid}, nil
	}))

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// authenticate registers the connection with the client manager on first
// sight and resolves a bearer token into a session, mirroring how the
// binary transports register a connection at accept time.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := s.clients.Register("http", r.RemoteAddr, s.authDisabled)
		defer s.clients.Deregister(ctx.ClientID)

		if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if userID, err := s.tokens.Verify(token); err == nil {
				ctx.Login(userID)
				s.clients.NoteLogin(ctx.ClientID, userID)
			}
		}
		r = r.WithContext(withSession(r.Context(), ctx))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeOK(w, []byte(`"pong"`))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, wire.New(wire.KindInvalidFormat, "httpapi: bad request body"))
		return
	}
	ctx := sessionFrom(r.Context())
	payload, err := s.dispatcher.Handle(ctx, wire.LoginUser{Username: body.Username, Password: body.Password})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, payload)
}

// wrap turns a command builder into an http.HandlerFunc: build the
// command from the request, hand it to the dispatcher, map the result.
func (s *Server) wrap(build func(ctx *auth.Context, r *http.Request) (wire.Command, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := sessionFrom(r.Context())
		cmd, err := build(ctx, r)
		if err != nil {
			writeError(w, err)
			return
		}
		payload, err := s.dispatcher.Handle(ctx, cmd)
		if err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, payload)
	}
}

func writeOK(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if len(payload) == 0 {
		w.Write([]byte("{}"))
		return
	}
	w.Write(payload)
}

// writeError maps a wire.Kind onto the status codes in §6.
func writeError(w http.ResponseWriter, err error) {
	werr := wire.As(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForKind(werr.Kind))
	json.NewEncoder(w).Encode(map[string]string{"error": werr.Message})
}

func statusForKind(k wire.Kind) int {
	switch k {
	case wire.KindOK:
		return http.StatusOK
	case wire.KindInvalidCommand, wire.KindInvalidFormat, wire.KindResourceNameInvalid:
		return http.StatusBadRequest
	case wire.KindUnauthenticated, wire.KindInvalidCredentials:
		return http.StatusUnauthorized
	case wire.KindUnauthorized:
		return http.StatusForbidden
	case wire.KindStreamNotFound, wire.KindTopicNotFound, wire.KindPartitionNotFound,
		wire.KindConsumerGroupNotFound, wire.KindUserNotFound:
		return http.StatusNotFound
	case wire.KindStreamAlreadyExists, wire.KindTopicAlreadyExists, wire.KindConsumerGroupExists:
		return http.StatusConflict
	case wire.KindOffsetOutOfRange:
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, wire.New(wire.KindInvalidFormat, "httpapi: bad id %q", s)
	}
	return uint32(v), nil
}

func parseIdentifierParam(r *http.Request, param string) (id.Identifier, error) {
	ident, err := id.ParseIdentifier(chi.URLParam(r, param))
	if err != nil {
		return id.Identifier{}, wire.New(wire.KindInvalidFormat, "httpapi: %v", err)
	}
	return ident, nil
}

func parseStreamTopicParams(r *http.Request) (id.Identifier, id.Identifier, error) {
	sid, err := parseIdentifierParam(r, "streamID")
	if err != nil {
		return id.Identifier{}, id.Identifier{}, err
	}
	tid, err := parseIdentifierParam(r, "topicID")
	if err != nil {
		return id.Identifier{}, id.Identifier{}, err
	}
	return sid, tid, nil
}

func parseGroupParams(r *http.Request) (id.Identifier, id.Identifier, id.Identifier, error) {
	sid, tid, err := parseStreamTopicParams(r)
	if err != nil {
		return id.Identifier{}, id.Identifier{}, id.Identifier{}, err
	}
	gid, err := parseIdentifierParam(r, "groupID")
	if err != nil {
		return id.Identifier{}, id.Identifier{}, id.Identifier{}, err
	}
	return sid, tid, gid, nil
}

package http

import (
	"context"
	"net/http"

	"github.com/dkeye/chatrelay/internal/adapters/signal"
	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "client_token"

// ClientTokenMiddleware gives every browser a stable token kept in the cookie session.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

type roomURI struct {
	Room string `uri:"room" binding:"required,max=64"`
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	rooms core.RoomRegistry,
	registry *app.Registry,
	ctl *signal.SignalWSController,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("ChatSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"rooms":    len(rooms.List()),
			"sessions": registry.Count(),
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// GET /api/rooms: list rooms
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": rooms.List()})
	})

	// GET /api/rooms/:room: room info, never creates
	api.GET("/rooms/:room", func(c *gin.Context) {
		room, ok := lookupRoom(c, rooms)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"name":         room.Room().Name,
			"member_count": room.MemberCount(),
			"created_at":   room.Room().CreatedAt,
		})
	})

	// GET /api/rooms/:room/members: joined members in join order
	api.GET("/rooms/:room/members", func(c *gin.Context) {
		room, ok := lookupRoom(c, rooms)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"members": room.MembersSnapshot()})
	})

	// GET /chat/:room: websocket chat
	r.GET("/chat/:room", func(c *gin.Context) {
		var uri roomURI
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room name"})
			return
		}
		ctl.HandleSignal(ctx, c, domain.RoomName(uri.Room))
	})

	return r
}

func lookupRoom(c *gin.Context, rooms core.RoomRegistry) (core.RoomService, bool) {
	var uri roomURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room name"})
		return nil, false
	}
	room, ok := rooms.Get(domain.RoomName(uri.Room))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return nil, false
	}
	return room, true
}

package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dkeye/Lobby/internal/adapters/signal"
	"github.com/dkeye/Lobby/internal/adapters/upload"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, files *upload.Service) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LobbySessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is awake!")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": cfg.Store.Driver})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	ws := signal.NewSignalWSController(o, cfg.WS)
	api.GET("/ws", func(c *gin.Context) {
		ws.HandleSignal(ctx, c)
	})

	api.GET("/rooms", func(c *gin.Context) {
		rooms, err := o.Rooms(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	})

	api.GET("/rooms/:name/members", func(c *gin.Context) {
		room := domain.RoomName(c.Param("name"))
		members, err := o.Members(c.Request.Context(), room)
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": domain.ClientMessage(err, room)})
		case err != nil:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, gin.H{"room": room, "members": members})
		}
	})

	api.GET("/bans", func(c *gin.Context) {
		bans, err := o.Bans(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"bans": bans})
	})

	if files != nil {
		api.POST("/upload", uploadHandler(files))
		api.GET("/files/*key", filesHandler(files))
	}

	return r
}

func uploadHandler(files *upload.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, files.MaxBytes()+1<<20)

		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
			return
		}
		if fh.Size > files.MaxBytes() {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": upload.ErrTooLarge.Error()})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
			return
		}

		room := domain.RoomName(c.PostForm("room"))
		url, err := files.Upload(c.Request.Context(), data, fh.Filename, fh.Header.Get("Content-Type"), c.PostForm("username"), room)
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, gin.H{"url": url})
		case errors.Is(err, upload.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, upload.ErrGeneralRoom), errors.Is(err, upload.ErrEmptyFile), errors.Is(err, domain.ErrRoomNameInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		}
	}
}

func filesHandler(files *upload.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, info, err := files.Open(c.Request.Context(), c.Param("key"))
		switch {
		case err == nil:
			c.Data(http.StatusOK, info.ContentType, data)
		case errors.Is(err, core.ErrObjectNotFound), errors.Is(err, upload.ErrInvalidKey):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		default:
			log.Error().Err(err).Str("module", "adapters.http").Msg("file read failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read failed"})
		}
	}
}

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/escalation"
	"github.com/teslashibe/go-wraith/pkg/ingest"
	"github.com/teslashibe/go-wraith/pkg/pipeline"
	"github.com/teslashibe/go-wraith/pkg/sleep"
)

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.pipe.Snapshot())
}

func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"config": s.pipe.Config(),
		"keys":   pipeline.TuningKeys(),
	})
}

// handlePatchConfig accepts a JSON object or a form of tuning values.
// JSON numbers and booleans are accepted as well as strings.
func (s *Server) handlePatchConfig(c *fiber.Ctx) error {
	values := make(map[string]string)
	if c.Is("json") {
		var raw map[string]any
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "invalid JSON object")
		}
		for k, v := range raw {
			if v != nil {
				values[k] = fmt.Sprint(v)
			}
		}
	} else {
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			values[string(k)] = string(v)
		})
	}

	applied := s.pipe.ApplyTuning(values)
	if applied == nil {
		applied = []string{}
	}
	return c.JSON(fiber.Map{
		"applied": applied,
		"config":  s.pipe.Config(),
	})
}

func (s *Server) handleMotion(c *fiber.Ctx) error {
	var m ingest.Motion
	if err := c.BodyParser(&m); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid motion sample")
	}
	var ok bool
	if m.Magnitude != nil {
		ok = s.pipe.SetMotion(*m.Magnitude)
	} else {
		ok = s.pipe.SetMotionVector(m.X, m.Y, m.Z)
	}
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "motion sample must be finite")
	}
	return c.JSON(fiber.Map{"moving": s.pipe.Moving()})
}

func (s *Server) handleOverride(c *fiber.Ctx) error {
	var req struct {
		Mode string `json:"mode" form:"mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid body")
	}
	o, err := escalation.ParseOverride(req.Mode)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	s.pipe.SetOverride(o)
	return c.JSON(fiber.Map{"mode": o})
}

func (s *Server) handleCalibrate(c *fiber.Ctx) error {
	s.pipe.StartCalibration()
	return c.JSON(fiber.Map{"running": s.pipe.Running()})
}

func (s *Server) handleHit(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"hit": s.pipe.MicrogameHit()})
}

func (s *Server) handleSleepImport(c *fiber.Ctx) error {
	prof, err := s.pipe.ImportSleep(c.Body())
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, sleep.MsgImportFailed)
	}
	return c.JSON(prof)
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	s.pipe.Stop()
	return c.JSON(fiber.Map{"running": false})
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	s.pipe.Start()
	return c.JSON(fiber.Map{"running": true})
}

func (s *Server) handleCounter(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"count": s.pipe.DrowsyCount()})
}

func (s *Server) handleResetCounter(c *fiber.Ctx) error {
	if err := s.pipe.ResetDrowsyCount(c.UserContext()); err != nil {
		log.Error("failed to reset drowsy count", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "reset failed")
	}
	return c.JSON(fiber.Map{"count": 0})
}

func (s *Server) handleTarget(c *fiber.Ctx) error {
	var req struct {
		Index *int `json:"index" form:"index"`
	}
	if err := c.BodyParser(&req); err != nil || req.Index == nil {
		return errorJSON(c, fiber.StatusBadRequest, "index is required")
	}
	s.pipe.SetTarget(*req.Index)
	return c.JSON(fiber.Map{"index": max(-1, *req.Index)})
}

func (s *Server) handleRecords(c *fiber.Ctx) error {
	if s.opts.Store == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "no store configured")
	}
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	recs, err := s.opts.Store.Records(c.UserContext(), limit)
	if err != nil {
		log.Error("failed to list records", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list records")
	}
	return c.JSON(fiber.Map{"records": recs})
}

func (s *Server) handleIngestStats(c *fiber.Ctx) error {
	resp := fiber.Map{}
	if s.opts.Ingest != nil {
		resp["stats"] = s.opts.Ingest.Stats()
		resp["sessions"] = s.opts.Ingest.Sessions()
	}
	if s.opts.WebRTC != nil {
		resp["peers"] = s.opts.WebRTC.Peers()
	}
	return c.JSON(resp)
}

var errFitUnavailable = errors.New("sleep sync is not configured")

func (s *Server) handleFitAuth(c *fiber.Ctx) error {
	if s.opts.Sleep == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errFitUnavailable.Error())
	}
	state := uuid.NewString()
	s.mu.Lock()
	s.oauthState = state
	s.mu.Unlock()
	return c.Redirect(s.opts.Sleep.AuthURL(state), fiber.StatusTemporaryRedirect)
}

func (s *Server) handleFitCallback(c *fiber.Ctx) error {
	if s.opts.Sleep == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errFitUnavailable.Error())
	}

	s.mu.Lock()
	want := s.oauthState
	s.oauthState = ""
	s.mu.Unlock()
	if want == "" || c.Query("state") != want {
		return errorJSON(c, fiber.StatusBadRequest, "invalid oauth state")
	}
	code := c.Query("code")
	if code == "" {
		return errorJSON(c, fiber.StatusBadRequest, "missing code")
	}

	ctx := c.UserContext()
	if err := s.opts.Sleep.HandleCallback(ctx, code); err != nil {
		log.Error("fit authorization failed", "error", err)
		return errorJSON(c, fiber.StatusBadGateway, "authorization failed")
	}
	hours, err := s.opts.Sleep.LastSleepHours(ctx, time.Now())
	if err != nil {
		log.Warn("fit sleep sync failed", "error", err)
		return c.JSON(fiber.Map{"authorized": true, "synced": false})
	}
	s.pipe.SyncSleep(hours)
	return c.JSON(fiber.Map{"authorized": true, "synced": true, "hours": hours})
}

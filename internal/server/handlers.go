package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jmylchreest/cleanlink/internal/version"
	"github.com/jmylchreest/cleanlink/pkg/cleaner"
	"github.com/jmylchreest/cleanlink/pkg/params"
	"github.com/jmylchreest/cleanlink/pkg/settings"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(healthResponse{Status: "ok", Version: version.Get().Version})
}

type categoryView struct {
	Name    string   `json:"name"`
	Enabled bool     `json:"enabled"`
	Params  []string `json:"params"`
}

func (s *Server) handleCategories(c *fiber.Ctx) error {
	current, err := s.manager.Settings(c.UserContext())
	if err != nil {
		return err
	}

	views := make([]categoryView, 0, len(params.Categories()))
	for _, name := range params.Names() {
		ps, _ := params.Lookup(name)
		views = append(views, categoryView{
			Name:    name,
			Enabled: current.IsEnabled(name),
			Params:  ps,
		})
	}
	return c.JSON(views)
}

type cleanRequest struct {
	URL  string   `json:"url"`
	URLs []string `json:"urls"`
}

type cleanResponse struct {
	Results      []cleaner.Result `json:"results"`
	RemovedCount int              `json:"removedCount"`
}

func (s *Server) handleClean(c *fiber.Ctx) error {
	var req cleanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	urls := req.URLs
	if req.URL != "" {
		urls = append([]string{req.URL}, urls...)
	}
	if len(urls) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, `"url" or "urls" is required`)
	}
	if len(urls) > maxBatch {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "too many urls")
	}

	results, err := s.manager.CleanAll(c.UserContext(), urls)
	if err != nil {
		return err
	}

	resp := cleanResponse{Results: results}
	for _, r := range results {
		resp.RemovedCount += r.RemovedCount
	}
	return c.JSON(resp)
}

func (s *Server) handlePreview(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		return fiber.NewError(fiber.StatusBadRequest, `query parameter "url" is required`)
	}

	r, err := s.manager.Preview(c.UserContext(), raw)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	current, err := s.manager.Settings(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(current.Stats)
}

func (s *Server) handleSettings(c *fiber.Ctx) error {
	current, err := s.manager.Settings(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(current)
}

func (s *Server) handleEnableCategory(c *fiber.Ctx) error {
	name := c.Params("name")
	return s.update(c, func(st *settings.Settings) error {
		return st.EnableCategory(name)
	})
}

func (s *Server) handleDisableCategory(c *fiber.Ctx) error {
	name := c.Params("name")
	return s.update(c, func(st *settings.Settings) error {
		return st.DisableCategory(name)
	})
}

type paramRequest struct {
	Param string `json:"param"`
}

type paramResponse struct {
	Added    bool              `json:"added"`
	Settings settings.Settings `json:"settings"`
}

func (s *Server) handleAddParam(c *fiber.Ctx) error {
	var req paramRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	var added bool
	updated, err := s.manager.Update(c.UserContext(), func(st *settings.Settings) error {
		var err error
		added, err = st.AddCustomParam(req.Param)
		return err
	})
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if added {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(paramResponse{Added: added, Settings: updated})
}

func (s *Server) handleRemoveParam(c *fiber.Ctx) error {
	name := c.Params("param")

	var removed bool
	updated, err := s.manager.Update(c.UserContext(), func(st *settings.Settings) error {
		removed = st.RemoveCustomParam(name)
		return nil
	})
	if err != nil {
		return err
	}
	if !removed {
		return fiber.NewError(fiber.StatusNotFound, "custom parameter not found: "+name)
	}
	return c.JSON(updated)
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	return s.update(c, func(st *settings.Settings) error {
		st.Reset()
		return nil
	})
}

// update applies fn through the manager and responds with the new settings.
func (s *Server) update(c *fiber.Ctx, fn func(*settings.Settings) error) error {
	updated, err := s.manager.Update(c.UserContext(), fn)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

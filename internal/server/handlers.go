package server

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"tradeforms/internal/classifier"
	"tradeforms/internal/history"
	"tradeforms/internal/templates"
	"tradeforms/internal/tradeagent"
)

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type fillRequest struct {
	Template       string `json:"template"`
	Prompt         string `json:"prompt"`
	UseAI          *bool  `json:"use_ai"`
	UseDB          *bool  `json:"use_db"`
	SaveToDB       bool   `json:"save_to_db"`
	AutoClassifyHS *bool  `json:"auto_classify_hs"`
}

// handleFill runs one end-to-end form fill for the named template.
func (s *Server) handleFill(c fiber.Ctx) error {
	var req fillRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Template) == "" || strings.TrimSpace(req.Prompt) == "" {
		return jsonError(c, fiber.StatusBadRequest, "template and prompt are required")
	}

	tmpl, err := s.templates.Get(req.Template)
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "template not found: "+req.Template)
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to load template")
	}

	opts := tradeagent.Options{
		UseAI:          boolOrDefault(req.UseAI, true),
		UseHistory:     boolOrDefault(req.UseDB, true),
		AutoClassifyHS: boolOrDefault(req.AutoClassifyHS, true),
	}

	result, err := s.agent.FillTradeForm(c.Context(), tmpl, req.Prompt, opts)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "form filling failed")
	}

	if req.SaveToDB && s.history != nil {
		if _, err := s.history.Save(c.Context(), tmpl.Name, req.Prompt, result.Form); err != nil {
			log.Printf("saving submission failed (non-fatal): %v", err)
		}
	}

	resp := fiber.Map{
		"filled":   result.Form,
		"from_db":  result.FromHistory,
		"template": tmpl.Name,
		"source":   result.Source,
	}
	if result.HSClassification != nil {
		resp["hs_classification"] = result.HSClassification
	}
	return c.JSON(resp)
}

type classifyRequest struct {
	ProductDescription string `json:"product_description"`
	TopN               int    `json:"top_n"`
}

// handleClassifyHS returns ranked HS-code suggestions for a product description.
func (s *Server) handleClassifyHS(c fiber.Ctx) error {
	var req classifyRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.ProductDescription) == "" {
		return jsonError(c, fiber.StatusBadRequest, "product_description is required")
	}
	if req.TopN < 1 {
		req.TopN = 5
	}

	suggestions, err := s.classifier.Classify(c.Context(), req.ProductDescription, req.TopN)
	if err != nil {
		if errors.Is(err, classifier.ErrEmptyDescription) {
			return jsonError(c, fiber.StatusBadRequest, "product_description is required")
		}
		return jsonError(c, fiber.StatusInternalServerError, "classification failed")
	}
	if suggestions == nil {
		suggestions = []classifier.Result{}
	}

	return c.JSON(fiber.Map{
		"suggestions":         suggestions,
		"count":               len(suggestions),
		"product_description": req.ProductDescription,
	})
}

func (s *Server) handleListTemplates(c fiber.Ctx) error {
	list, err := s.templates.List()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to list templates")
	}

	out := make([]fiber.Map, 0, len(list))
	for _, tmpl := range list {
		out = append(out, fiber.Map{
			"name":   tmpl.Name,
			"fields": tmpl.FieldNames(),
		})
	}
	return c.JSON(fiber.Map{"templates": out})
}

func (s *Server) handleGetTemplate(c fiber.Ctx) error {
	tmpl, err := s.templates.Get(c.Params("name"))
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "template not found")
		}
		return jsonError(c, fiber.StatusBadRequest, "invalid template name")
	}
	return c.JSON(fiber.Map{"name": tmpl.Name, "template": tmpl})
}

type createTemplateRequest struct {
	Name     string          `json:"name"`
	Template json.RawMessage `json:"template"`
}

func (s *Server) handleCreateTemplate(c fiber.Ctx) error {
	var req createTemplateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" || len(req.Template) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "name and template are required")
	}

	tmpl, err := s.templates.Create(req.Name, req.Template)
	if err != nil {
		if errors.Is(err, templates.ErrAlreadyExists) {
			return jsonError(c, fiber.StatusConflict, "template already exists: "+req.Name)
		}
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"name":   tmpl.Name,
		"fields": tmpl.FieldNames(),
	})
}

func (s *Server) handleHistory(c fiber.Ctx) error {
	if s.history == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "history store not configured")
	}

	limit := 10
	if raw := c.Query("limit", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return jsonError(c, fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	query := c.Query("query", "")
	if strings.TrimSpace(query) == "" {
		return jsonError(c, fiber.StatusBadRequest, "query is required")
	}

	results, err := s.history.FindSimilar(c.Context(), query, c.Query("template", ""), limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "history search failed")
	}
	if results == nil {
		results = []history.Submission{}
	}

	return c.JSON(fiber.Map{"history": results, "count": len(results)})
}

// requireAuth enforces the bearer token on /api routes when one is configured.
func (s *Server) requireAuth(c fiber.Ctx) error {
	if s.cfg.APIAuthToken == "" {
		return c.Next()
	}
	auth := c.Get("Authorization")
	if auth != "Bearer "+s.cfg.APIAuthToken {
		return jsonError(c, fiber.StatusUnauthorized, "invalid or missing bearer token")
	}
	return c.Next()
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/taste-review/app"
	"github.com/mbolis/taste-review/httpx"
	"github.com/mbolis/taste-review/log"
	"github.com/mbolis/taste-review/model"
	"github.com/mbolis/taste-review/platform"
	"github.com/mbolis/taste-review/routes/middlewares"
	"github.com/mbolis/taste-review/store"
)

func invalid(w http.ResponseWriter, r *http.Request, code string, err error) {
	httpx.LogJSON(w, r, http.StatusUnprocessableEntity, log.DebugLevel, code, err, httpx.ErrorBody{Error: err.Error()})
}

func GetRestaurant(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantId := middlewares.RestaurantID(r)

		restaurant, err := app.Loader.Restaurant(r.Context(), restaurantId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_restaurant", restaurantId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_restaurant", err)
			return
		}

		render.JSON(w, r, restaurant)
	}
}

func UpdateRestaurant(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantId := middlewares.RestaurantID(r)

		restaurant := model.Restaurant{}
		err := render.DecodeJSON(r.Body, &restaurant)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := restaurant.Validate(); err != nil {
			invalid(w, r, "update_restaurant.validate", err)
			return
		}

		links, err := app.Platforms.ValidateAll(restaurant.SocialLinks)
		if err != nil {
			var linkErr *platform.InvalidValueError
			if errors.As(err, &linkErr) {
				invalid(w, r, "update_restaurant.validate_links", err)
				return
			}
			httpx.LogInternalError(w, "update_restaurant.validate_links", err)
			return
		}
		linksJson, err := json.Marshal(links)
		if err != nil {
			httpx.LogInternalError(w, "update_restaurant.encode_links", err)
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE restaurants
			SET
				name = ?,
				social_links = ?
			WHERE id = ?`,
			restaurant.Name,
			string(linksJson),
			restaurantId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_restaurant", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_restaurant.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "update_restaurant", restaurantId)
			return
		}

		updated, err := app.Loader.Restaurant(r.Context(), restaurantId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_restaurant", err)
			return
		}
		render.JSON(w, r, updated)
	}
}

func ListPlatforms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"platforms": app.Platforms.All(),
		})
	}
}

func ListTemplates(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"templates":     model.Templates,
			"max_questions": model.MaxQuestionsPerForm,
		})
	}
}

// formRequest is a form, optionally seeded from a template when it has no questions.
type formRequest struct {
	model.Form
	Template string `json:"template,omitempty"`
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := formRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form := req.Form
		if req.Template != "" && len(form.Questions) == 0 {
			tpl, ok := model.Template(req.Template)
			if !ok {
				httpx.LogNotFound(w, "create_form.template", req.Template)
				return
			}
			form.Questions = append([]model.Question(nil), tpl.Questions...)
			if form.Name == "" {
				form.Name = tpl.Name
			}
		}
		if err := form.Validate(); err != nil {
			invalid(w, r, "create_form.validate", err)
			return
		}

		created, err := app.Forms.Create(r.Context(), middlewares.RestaurantID(r), form)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}
		log.WithFields(log.Fields{"form": created.ID}).Info("form created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := app.Loader.Forms(r.Context(), middlewares.RestaurantID(r))
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := app.Loader.Form(r.Context(), middlewares.RestaurantID(r), formId, false)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		form.ID = formId
		if err := form.Validate(); err != nil {
			invalid(w, r, "update_form.validate", err)
			return
		}

		updated, err := app.Forms.Update(r.Context(), middlewares.RestaurantID(r), form)
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.LogNotFound(w, "update_form", formId)
			return
		case errors.Is(err, store.ErrConflict):
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_form.verify.conflict")
			return
		case err != nil:
			httpx.LogInternalError(w, "db.update_form", err)
			return
		}

		render.JSON(w, r, updated)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		err := app.Forms.Delete(r.Context(), middlewares.RestaurantID(r), formId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "delete_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetFormSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		_, err := app.Loader.Form(r.Context(), middlewares.RestaurantID(r), formId, false)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_submissions", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		completedOnly := r.URL.Query().Get("completed") == "true"
		submissions, err := app.Submissions.ForForm(r.Context(), formId, completedOnly)
		if err != nil {
			httpx.LogInternalError(w, "db.get_submissions", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"submissions": submissions,
		})
	}
}

// CreatePreview issues a link that walks the form without recording answers.
func CreatePreview(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")
		restaurantId := middlewares.RestaurantID(r)

		restaurant, err := app.Loader.Restaurant(r.Context(), restaurantId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_restaurant", err)
			return
		}
		_, err = app.Loader.Form(r.Context(), restaurantId, formId, false)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "create_preview", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		token, expires, err := app.Previews.Issue(formId)
		if err != nil {
			httpx.LogInternalError(w, "preview.issue", err)
			return
		}

		path := "/r/" + url.PathEscape(restaurant.Slug) + "/" + url.PathEscape(formId) +
			"?" + url.Values{"preview": {token}}.Encode()
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"token":      token,
			"expires_at": expires,
			"path":       path,
		})
	}
}

// GetFormStats counts the form's completed submissions by overall sentiment.
func GetFormStats(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		_, err := app.Loader.Form(r.Context(), middlewares.RestaurantID(r), formId, false)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_stats", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		stats, err := app.Submissions.Stats(r.Context(), formId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_stats", err)
			return
		}

		render.JSON(w, r, stats)
	}
}

package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/clinic-finder/internal/clinic"
	"github.com/i474232898/clinic-finder/internal/geo"
	"github.com/i474232898/clinic-finder/internal/sources"
)

var validate = validator.New()

// ClinicLoader is the part of clinic.Service the handlers need.
type ClinicLoader interface {
	LoadClinics(ctx context.Context, q clinic.Query) clinic.Result
}

// SourceChecker checks the live spreadsheet ranges.
type SourceChecker interface {
	Check(ctx context.Context) []sources.RangeStatus
}

// Options toggles optional behaviour of the API.
type Options struct {
	// DeveloperMode honours refresh=true on the clinics endpoint.
	DeveloperMode bool
	// Checker is nil when the live spreadsheet is not configured.
	Checker SourceChecker
}

// clinicsResponse is the body of GET /clinics.
type clinicsResponse struct {
	Clinics   []clinic.Clinic `json:"clinics"`
	Total     int             `json:"total"`
	Message   string          `json:"message,omitempty"`
	State     clinic.State    `json:"state"`
	FromCache bool            `json:"fromCache"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service ClinicLoader, opts Options) {
	v1 := app.Group("/api/v1")

	v1.Get("/clinics", func(c *fiber.Ctx) error {
		var req clinicsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		observer, err := req.observer()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res := service.LoadClinics(c.UserContext(), clinic.Query{
			Observer:     observer,
			Treatment:    req.Treatment,
			ForceRefresh: req.Refresh && opts.DeveloperMode,
		})
		if res.Failed() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(clinicsResponse{
				Clinics: []clinic.Clinic{},
				Message: res.Message,
				State:   res.State,
			})
		}

		list := clinic.Filter{
			Equipment: req.Equipment,
			City:      req.City,
			Name:      req.Name,
			Search:    req.Search,
		}.Apply(res.Clinics)

		return c.JSON(clinicsResponse{
			Clinics:   list,
			Total:     len(list),
			Message:   res.Message,
			State:     res.State,
			FromCache: res.FromCache,
		})
	})

	v1.Get("/clinics/:id/contact", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id must be a positive integer")
		}

		res := service.LoadClinics(c.UserContext(), clinic.Query{})
		if res.Failed() {
			return fiber.NewError(fiber.StatusServiceUnavailable, res.Message)
		}
		found, err := clinic.FindByID(res.Clinics, id)
		if err != nil {
			if errors.Is(err, clinic.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "clinic not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to look up clinic")
		}

		return c.JSON(fiber.Map{
			"id":      found.ID,
			"name":    found.Name,
			"contact": clinic.ContactLinks(found),
		})
	})

	v1.Get("/filters", func(c *fiber.Ctx) error {
		treatment := strings.TrimSpace(c.Query("treatment"))
		department := strings.TrimSpace(c.Query("department"))

		var departmentCities []string
		if department != "" {
			departmentCities = geo.CitiesInDepartment(department)
			if len(departmentCities) == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "unknown department: "+department)
			}
		}

		res := service.LoadClinics(c.UserContext(), clinic.Query{})
		if res.Failed() {
			return fiber.NewError(fiber.StatusServiceUnavailable, res.Message)
		}
		subset := clinic.Filter{Treatment: treatment}.Apply(res.Clinics)

		treatments := clinic.TreatmentOptions(res.Clinics)
		labels := make(map[string]string, len(treatments))
		for _, t := range treatments[1:] {
			labels[t] = clinic.TreatmentForDisplay(t)
		}

		cities := clinic.CityOptions(subset)
		if departmentCities != nil {
			cities = append([]string{clinic.AllCities}, departmentCities...)
		}

		return c.JSON(fiber.Map{
			"treatments":      treatments,
			"treatmentLabels": labels,
			"equipment":       append([]string{clinic.AllEquipment}, clinic.UniqueEquipment(subset)...),
			"cities":          cities,
			"departments":     geo.Departments(),
			"names":           append([]string{clinic.AllNames}, clinic.UniqueClinicNames(subset)...),
		})
	})

	v1.Get("/sources/check", func(c *fiber.Ctx) error {
		if opts.Checker == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "live clinic source is not configured")
		}
		ranges := opts.Checker.Check(c.UserContext())
		ok := true
		for _, r := range ranges {
			ok = ok && r.OK
		}
		status := fiber.StatusOK
		if !ok {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{
			"ok":     ok,
			"ranges": ranges,
		})
	})
}

// clinicsQuery holds query parameters for the clinics endpoint.
type clinicsQuery struct {
	Lat       string `validate:"required_with=Lng"`
	Lng       string `validate:"required_with=Lat"`
	Near      string `validate:"max=100"`
	Treatment string `validate:"max=100"`
	Equipment string `validate:"max=100"`
	City      string `validate:"max=100"`
	Name      string `validate:"max=200"`
	Search    string `validate:"max=200"`
	Refresh   bool
}

func (q *clinicsQuery) bind(c *fiber.Ctx) error {
	q.Lat = strings.TrimSpace(c.Query("lat"))
	q.Lng = strings.TrimSpace(c.Query("lng"))
	q.Near = strings.TrimSpace(c.Query("near"))
	q.Treatment = strings.TrimSpace(c.Query("treatment"))
	q.Equipment = strings.TrimSpace(c.Query("equipment"))
	q.City = strings.TrimSpace(c.Query("city"))
	q.Name = strings.TrimSpace(c.Query("name"))
	q.Search = strings.TrimSpace(c.Query("q"))

	if v := c.Query("refresh"); v != "" {
		refresh, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("refresh must be a boolean")
		}
		q.Refresh = refresh
	}

	return validate.Struct(q)
}

// observer resolves the visitor location from lat/lng or, failing that,
// from a known city name.
func (q clinicsQuery) observer() (*geo.Point, error) {
	if q.Lat != "" || q.Lng != "" {
		p, err := geo.ParsePoint(q.Lat, q.Lng)
		if err != nil {
			return nil, err
		}
		return &p, nil
	}
	if q.Near != "" {
		p, ok := geo.CityCentroid(q.Near)
		if !ok {
			return nil, errors.New("unknown city: " + q.Near)
		}
		return &p, nil
	}
	return nil, nil
}

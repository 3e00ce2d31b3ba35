package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/Bizoholic-Digital/leadscore/internal/adapters/http/api"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/mq/queue"
	"github.com/Bizoholic-Digital/leadscore/internal/adapters/repository"
	service "github.com/Bizoholic-Digital/leadscore/internal/app"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/calibration"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/internal/domain/types"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type fakeDeps struct {
	scoreErr   error
	bulkErr    error
	enqueueErr error
	duplicate  bool
	top        []types.RankedLead
	topN       int
	stored     map[string]model.ScoringResult
	reconciled map[string]bool
	gotExtra   map[string]float64
	gotLead    model.LeadRecord
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{
		stored:     map[string]model.ScoringResult{},
		reconciled: map[string]bool{},
	}
}

func (f *fakeDeps) ScoreLeadWithMetrics(_ context.Context, lead model.LeadRecord, _ bool, extra map[string]float64) (*model.ScoringResult, error) {
	f.gotExtra = extra
	if errors.Is(f.scoreErr, model.ErrValidation) {
		return nil, f.scoreErr
	}
	if lead.LeadID == "" {
		return nil, &model.ValidationError{Fields: []model.FieldError{{Field: "lead_id", Rule: "required"}}}
	}
	res := &model.ScoringResult{LeadID: lead.LeadID, TotalScore: 63.4, QualificationLevel: model.LevelWarm}
	return res, f.scoreErr
}

func (f *fakeDeps) BulkScore(_ context.Context, leads []model.LeadRecord, _ bool) ([]model.ScoringResult, error) {
	out := make([]model.ScoringResult, 0, len(leads))
	for _, l := range leads {
		out = append(out, model.ScoringResult{LeadID: l.LeadID})
	}
	return out, f.bulkErr
}

func (f *fakeDeps) GetCachedScore(_ context.Context, leadID string) (*model.ScoringResult, error) {
	res, ok := f.stored[leadID]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", leadID, repository.ErrNotFound)
	}
	return &res, nil
}

func (f *fakeDeps) TopLeads(_ context.Context, n int) ([]types.RankedLead, error) {
	f.topN = n
	return f.top, nil
}

func (f *fakeDeps) Enqueue(_ context.Context, signalID string, lead model.LeadRecord, _ bool, _ map[string]float64) (types.EnqueueAck, error) {
	f.gotLead = lead
	if f.enqueueErr != nil {
		return types.EnqueueAck{}, f.enqueueErr
	}
	if f.duplicate {
		return types.EnqueueAck{SignalID: signalID, LeadID: lead.LeadID, Status: "duplicate", Duplicate: true}, nil
	}
	return types.EnqueueAck{SignalID: signalID, LeadID: lead.LeadID, Status: "accepted"}, nil
}

func (f *fakeDeps) RecordEstimation(_ context.Context, _, leadID string) (string, error) {
	if _, ok := f.stored[leadID]; !ok {
		return "", repository.ErrNotFound
	}
	return "est-1", nil
}

func (f *fakeDeps) GetEstimation(_ context.Context, id string) (model.CalibrationRecord, error) {
	if id != "est-1" {
		return model.CalibrationRecord{}, calibration.ErrNotFound
	}
	return model.CalibrationRecord{EstimationID: id, LeadID: "lead-1"}, nil
}

func (f *fakeDeps) Reconcile(_ context.Context, id string, outcome model.Outcome) (calibration.Summary, error) {
	if id != "est-1" {
		return calibration.Summary{}, calibration.ErrUnknownEstimation
	}
	if f.reconciled[id] {
		return calibration.Summary{}, calibration.ErrAlreadyReconciled
	}
	f.reconciled[id] = true
	return calibration.Summary{EstimationID: id, Success: outcome.Success, CalibrationAccuracy: 0.8}, nil
}

func (f *fakeDeps) Dashboard(_ context.Context, tenantID string) (calibration.Dashboard, error) {
	return calibration.Dashboard{TenantID: tenantID, TotalEstimations: 3}, nil
}

func (f *fakeDeps) GetStats(context.Context) service.Stats {
	return service.Stats{Started: true, StoredLeads: len(f.stored)}
}

func newMux(deps *fakeDeps, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var m map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &m), ShouldBeNil)
	return m
}

func TestScoreEndpoint(t *testing.T) {
	Convey("Given the score endpoint", t, func() {
		deps := newFakeDeps()
		mux := newMux(deps)

		Convey("When a valid lead is posted", func() {
			w := do(mux, http.MethodPost, "/v1/leads/score",
				`{"lead":{"lead_id":"lead-1","website_visits":3},"additional_metrics":{"mrr":10},"use_ai":true}`)

			Convey("Then the result is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["lead_id"], ShouldEqual, "lead-1")
				So(body["qualification_level"], ShouldEqual, "warm")
				So(body, ShouldNotContainKey, "warnings")
				So(deps.gotExtra, ShouldResemble, map[string]float64{"mrr": 10})
			})
		})

		Convey("When persistence fails", func() {
			deps.scoreErr = &service.PersistenceError{LeadID: "lead-1", Targets: []string{"cache"}, Err: errors.New("redis down")}
			w := do(mux, http.MethodPost, "/v1/leads/score", `{"lead":{"lead_id":"lead-1"}}`)

			Convey("Then the result still comes back with a warning", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["lead_id"], ShouldEqual, "lead-1")
				So(body["warnings"], ShouldHaveLength, 1)
			})
		})

		Convey("When the lead is invalid", func() {
			w := do(mux, http.MethodPost, "/v1/leads/score", `{"lead":{}}`)

			Convey("Then 400 lists the violated fields", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeBody(w)
				So(body["code"], ShouldEqual, "validation_failed")
				So(body["fields"], ShouldHaveLength, 1)
			})
		})

		Convey("When the body has unknown fields", func() {
			w := do(mux, http.MethodPost, "/v1/leads/score", `{"lead":{"lead_id":"x","favourite_colour":"red"}}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeBody(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the method is wrong", func() {
			w := do(mux, http.MethodGet, "/v1/leads/score", "")

			Convey("Then the mux answers 405", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestScoreEndpointWithUpdate(t *testing.T) {
	Convey("Given the score endpoint over a real service", t, func() {
		svc, err := service.New()
		So(err, ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc).Register(mux)
		lead := `{"lead_id":"lead-u","website_visits":2,"meetings_attended":0}`

		scores := func(body string) map[string]any {
			w := do(mux, http.MethodPost, "/v1/leads/score", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			return decodeBody(w)
		}

		Convey("When the same lead is scored with and without an update", func() {
			before := scores(`{"lead":` + lead + `}`)
			after := scores(`{"lead":` + lead + `,"update":{"meetings_attended":3,"proposal_requests":1,"budget":60000,"timeline":"ASAP"}}`)

			Convey("Then the updated fields move the category scores", func() {
				b := before["scores"].(map[string]any)
				a := after["scores"].(map[string]any)
				So(a["engagement"], ShouldBeGreaterThan, b["engagement"])
				So(a["fit"], ShouldBeGreaterThan, b["fit"])
				So(a["demographic"], ShouldEqual, b["demographic"])
				So(after["total_score"], ShouldBeGreaterThan, before["total_score"])
			})
		})

		Convey("When the update is empty", func() {
			before := scores(`{"lead":` + lead + `}`)
			after := scores(`{"lead":` + lead + `,"update":{}}`)

			Convey("Then the score is unchanged", func() {
				So(after["total_score"], ShouldEqual, before["total_score"])
			})
		})
	})
}

func TestBulkEndpoint(t *testing.T) {
	Convey("Given the bulk endpoint", t, func() {
		deps := newFakeDeps()
		mux := newMux(deps)

		Convey("When some leads fail", func() {
			deps.bulkErr = &service.BatchPartialFailure{
				Failures: []service.LeadFailure{{Index: 1, LeadID: "b", Reason: "validation failed"}},
			}
			w := do(mux, http.MethodPost, "/v1/leads/bulk-score", `{"leads":[{"lead_id":"a"},{"lead_id":"b"}]}`)

			Convey("Then results and failures are both returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["results"], ShouldHaveLength, 2)
				So(body["failures"], ShouldHaveLength, 1)
				So(body["warnings"], ShouldBeEmpty)
			})
		})

		Convey("When the batch is too large", func() {
			deps.bulkErr = fmt.Errorf("%w: 5 > 3", service.ErrBatchTooBig)
			w := do(mux, http.MethodPost, "/v1/leads/bulk-score", `{"leads":[]}`)

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestEnqueueEndpoint(t *testing.T) {
	Convey("Given the enqueue endpoint", t, func() {
		deps := newFakeDeps()
		mux := newMux(deps)
		body := `{"signal_id":"sig-1","lead":{"lead_id":"lead-1"}}`

		Convey("Then a new signal is accepted with 202", func() {
			w := do(mux, http.MethodPost, "/v1/leads/enqueue", body)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(decodeBody(w)["status"], ShouldEqual, "accepted")
		})

		Convey("Then a duplicate signal answers 200", func() {
			deps.duplicate = true
			w := do(mux, http.MethodPost, "/v1/leads/enqueue", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(w)["duplicate"], ShouldEqual, true)
		})

		Convey("Then a full queue answers 429", func() {
			deps.enqueueErr = fmt.Errorf("enqueue lead lead-1: %w", queue.ErrFull)
			w := do(mux, http.MethodPost, "/v1/leads/enqueue", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeBody(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("Then an update is applied to the queued lead", func() {
			w := do(mux, http.MethodPost, "/v1/leads/enqueue",
				`{"signal_id":"sig-2","lead":{"lead_id":"lead-1","meetings_attended":1},"update":{"meetings_attended":4,"budget":30000}}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(deps.gotLead.MeetingsAttended, ShouldEqual, 4)
			So(deps.gotLead.Budget, ShouldNotBeNil)
			So(*deps.gotLead.Budget, ShouldEqual, 30000)
		})

		Convey("Then a stopped service answers 503", func() {
			deps.enqueueErr = service.ErrNotStarted
			w := do(mux, http.MethodPost, "/v1/leads/enqueue", body)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestReadEndpoints(t *testing.T) {
	Convey("Given a stored lead", t, func() {
		deps := newFakeDeps()
		deps.stored["lead-1"] = model.ScoringResult{LeadID: "lead-1", TotalScore: 81, QualificationLevel: model.LevelHot}
		deps.top = []types.RankedLead{{Rank: 1, LeadID: "lead-1", TotalScore: 81, QualificationLevel: "hot", ComputedAt: time.Now()}}
		mux := newMux(deps, api.WithMaxTopLimit(5))

		Convey("Then its score can be read", func() {
			w := do(mux, http.MethodGet, "/v1/leads/lead-1/score", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(w)["qualification_level"], ShouldEqual, "hot")
		})

		Convey("Then an unknown lead is 404", func() {
			w := do(mux, http.MethodGet, "/v1/leads/ghost/score", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeBody(w)["code"], ShouldEqual, "not_found")
		})

		Convey("Then top leads cap the limit", func() {
			w := do(mux, http.MethodGet, "/v1/leads/top?limit=50", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.topN, ShouldEqual, 5)
		})

		Convey("Then top leads default the limit", func() {
			do(mux, http.MethodGet, "/v1/leads/top", "")
			So(deps.topN, ShouldEqual, 5)
		})

		Convey("Then a bad limit is rejected", func() {
			w := do(mux, http.MethodGet, "/v1/leads/top?limit=zero", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then stats are served", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(w)["stored_leads"], ShouldEqual, 1)
		})

		Convey("Then /healthz serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestCalibrationEndpoints(t *testing.T) {
	Convey("Given a stored lead", t, func() {
		deps := newFakeDeps()
		deps.stored["lead-1"] = model.ScoringResult{LeadID: "lead-1"}
		mux := newMux(deps)

		Convey("When an estimation is recorded", func() {
			w := do(mux, http.MethodPost, "/v1/calibration/estimations", `{"tenant_id":"t1","lead_id":"lead-1"}`)

			Convey("Then 201 returns its id", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(decodeBody(w)["estimation_id"], ShouldEqual, "est-1")
			})
		})

		Convey("When the lead id is missing", func() {
			w := do(mux, http.MethodPost, "/v1/calibration/estimations", `{"tenant_id":"t1"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an outcome is posted twice", func() {
			first := do(mux, http.MethodPost, "/v1/calibration/estimations/est-1/outcome", `{"success":true}`)
			second := do(mux, http.MethodPost, "/v1/calibration/estimations/est-1/outcome", `{"success":true}`)

			Convey("Then the second one conflicts", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusConflict)
				So(decodeBody(second)["code"], ShouldEqual, "already_reconciled")
			})
		})

		Convey("When an unknown estimation is reconciled or read", func() {
			rec := do(mux, http.MethodPost, "/v1/calibration/estimations/nope/outcome", `{"success":false}`)
			get := do(mux, http.MethodGet, "/v1/calibration/estimations/nope", "")

			Convey("Then both are 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				So(get.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the dashboard is read", func() {
			w := do(mux, http.MethodGet, "/v1/calibration/dashboard?tenant_id=t1", "")

			Convey("Then the tenant is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["tenant_id"], ShouldEqual, "t1")
				So(body["total_estimations"], ShouldEqual, 3)
			})
		})
	})
}

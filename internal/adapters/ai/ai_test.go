package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
	"github.com/Bizoholic-Digital/leadscore/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func sampleRequest() Request {
	return Request{
		Lead: model.LeadRecord{
			LeadID:              "lead-42",
			CompanySize:         model.Ptr(150),
			Industry:            model.Ptr("Technology"),
			JobTitle:            model.Ptr("Marketing Manager"),
			Budget:              model.Ptr(30000.0),
			ServiceRequirements: []string{"SEO", "PPC"},
			WebsiteVisits:       5,
			ReferralSource:      model.Ptr("LinkedIn"),
		},
		Scores:            model.ScoreBreakdown{Demographic: 80, Behavioral: 51, Engagement: 57.5, Fit: 60},
		AdditionalMetrics: map[string]float64{"webinar_attended": 1, "deal_size": 12000},
	}
}

func TestParseQualification(t *testing.T) {
	convey.Convey("ParseQualification", t, func() {
		cases := []struct {
			name       string
			text       string
			score      float64
			confidence float64
		}{
			{"plain json", `{"score": 82, "confidence": 0.7, "explanation": "strong fit"}`, 82, 0.7},
			{"fenced json", "```json\n{\"score\": 64.5, \"confidence\": 0.9}\n```", 64.5, 0.9},
			{"alternate keys", `{"qualification_score": 55, "reasoning": "ok"}`, 55, 0.5},
			{"percent confidence", `{"score": 90, "confidence": 80}`, 90, 0.8},
			{"score out of range", `{"score": 140, "confidence": 1}`, 100, 1},
			{"labelled line", "Qualification score: 73/100\nConfidence: 65%", 73, 0.65},
			{"score of", "I would give this lead a score of 41 overall.", 41, 0.5},
			{"tier word", "This lead looks WARM to me.", 70, 0.5},
			{"unqualified tier", "Unqualified, no budget.", 20, 0.5},
		}
		for _, tc := range cases {
			convey.Convey(tc.name, func() {
				q, err := ParseQualification(tc.text)
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.Score, convey.ShouldAlmostEqual, tc.score)
				convey.So(q.Confidence, convey.ShouldAlmostEqual, tc.confidence)
			})
		}

		convey.Convey("The explanation is kept", func() {
			q, _ := ParseQualification(`{"score": 82, "explanation": "  strong fit "}`)
			convey.So(q.Explanation, convey.ShouldEqual, "strong fit")
		})

		convey.Convey("Empty and unusable answers fail", func() {
			_, err := ParseQualification("   ")
			convey.So(errors.Is(err, ErrEmptyResponse), convey.ShouldBeTrue)
			_, err = ParseQualification("I cannot help with that.")
			convey.So(errors.Is(err, ErrUnparseable), convey.ShouldBeTrue)
		})
	})
}

func TestUserPrompt(t *testing.T) {
	convey.Convey("The prompt lists present signals and sorted extra metrics", t, func() {
		p := UserPrompt(sampleRequest())
		convey.So(p, convey.ShouldContainSubstring, "Lead lead-42")
		convey.So(p, convey.ShouldContainSubstring, "company size: 150 employees")
		convey.So(p, convey.ShouldContainSubstring, "services requested: SEO, PPC")
		convey.So(p, convey.ShouldContainSubstring, "demographic 80.0")
		convey.So(p, convey.ShouldNotContainSubstring, "timeline")
		convey.So(strings.Index(p, "deal_size"), convey.ShouldBeLessThan, strings.Index(p, "webinar_attended"))
	})
}

type countingQualifier struct {
	calls atomic.Int32
}

func (c *countingQualifier) Qualify(context.Context, Request) (Qualification, error) {
	c.calls.Add(1)
	return Qualification{Score: 50, Confidence: 0.5}, nil
}

func TestRateLimited(t *testing.T) {
	convey.Convey("Given a rate limited qualifier with burst 2", t, func() {
		inner := &countingQualifier{}
		rl := NewRateLimited(inner, 1, 2)

		convey.Convey("It reports its burst and unwraps", func() {
			convey.So(rl.Burst(), convey.ShouldEqual, 2)
			convey.So(rl.Unwrap(), convey.ShouldEqual, inner)
		})

		convey.Convey("Calls beyond the burst wait and honour the deadline", func() {
			ctx := context.Background()
			_, err := rl.Qualify(ctx, Request{})
			convey.So(err, convey.ShouldBeNil)
			_, err = rl.Qualify(ctx, Request{})
			convey.So(err, convey.ShouldBeNil)

			short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			_, err = rl.Qualify(short, Request{})
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(inner.calls.Load(), convey.ShouldEqual, 2)
		})

		convey.Convey("A non-positive rate disables pacing", func() {
			free := NewRateLimited(inner, 0, 0)
			convey.So(free.Burst(), convey.ShouldEqual, 1)
			for i := 0; i < 5; i++ {
				_, err := free.Qualify(context.Background(), Request{})
				convey.So(err, convey.ShouldBeNil)
			}
		})
	})
}

func TestNew(t *testing.T) {
	convey.Convey("New selects a provider", t, func() {
		ctx := context.Background()

		q, err := New(ctx, Config{Provider: ProviderNone})
		convey.So(err, convey.ShouldBeNil)
		convey.So(q, convey.ShouldBeNil)

		_, err = New(ctx, Config{Provider: "watson"})
		convey.So(errors.Is(err, ErrUnknownProvider), convey.ShouldBeTrue)

		_, err = New(ctx, Config{Provider: ProviderOpenAI})
		convey.So(errors.Is(err, ErrMissingAPIKey), convey.ShouldBeTrue)

		q, err = New(ctx, Config{Provider: ProviderAnthropic, APIKey: "k", Burst: 3})
		convey.So(err, convey.ShouldBeNil)
		rl, ok := q.(*RateLimited)
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(rl.Burst(), convey.ShouldEqual, 3)
	})
}

// fakeLLM answers every request with body and records the last request.
func fakeLLM(t *testing.T, status int, body string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var last atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		last.Store(string(raw))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func answer(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(Qualification{Score: 77, Confidence: 0.6, Explanation: "engaged buyer"})
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func TestProviders(t *testing.T) {
	convey.Convey("Given fake provider endpoints", t, func() {
		ctx := context.Background()
		content, _ := json.Marshal(answer(t))

		convey.Convey("OpenAI answers are parsed", func() {
			srv, last := fakeLLM(t, http.StatusOK, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":`+string(content)+`}}],
				"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)
			q, err := NewOpenAIQualifier(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
			convey.So(err, convey.ShouldBeNil)

			got, err := q.Qualify(ctx, sampleRequest())
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.Score, convey.ShouldEqual, 77)
			convey.So(got.Explanation, convey.ShouldEqual, "engaged buyer")
			convey.So(last.Load().(string), convey.ShouldContainSubstring, "lead_qualification")
		})

		convey.Convey("OpenAI client errors are returned", func() {
			srv, _ := fakeLLM(t, http.StatusBadRequest, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
			q, _ := NewOpenAIQualifier(Config{APIKey: "k", BaseURL: srv.URL})
			_, err := q.Qualify(ctx, sampleRequest())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Anthropic answers are parsed", func() {
			srv, last := fakeLLM(t, http.StatusOK, `{"id":"m1","type":"message","role":"assistant","model":"m",
				"content":[{"type":"text","text":`+string(content)+`}],
				"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`)
			q, err := NewAnthropicQualifier(Config{APIKey: "k", BaseURL: srv.URL})
			convey.So(err, convey.ShouldBeNil)

			got, err := q.Qualify(ctx, sampleRequest())
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.Score, convey.ShouldEqual, 77)
			convey.So(last.Load().(string), convey.ShouldContainSubstring, "lead-42")
		})

		convey.Convey("Gemini answers are parsed", func() {
			srv, _ := fakeLLM(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":`+
				string(content)+`}]},"finishReason":"STOP"}]}`)
			q, err := NewGeminiQualifier(ctx, Config{APIKey: "k", BaseURL: srv.URL})
			convey.So(err, convey.ShouldBeNil)

			got, err := q.Qualify(ctx, sampleRequest())
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.Confidence, convey.ShouldEqual, 0.6)
		})
	})
}

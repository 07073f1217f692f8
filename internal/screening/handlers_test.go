package screening_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/smartystreets/goconvey/convey"

	"pulseecho/backend/internal/alerting"
	"pulseecho/backend/internal/coreengine/classification"
	"pulseecho/backend/internal/screening"
)

// fakeFetcher serves stored recordings from memory.
type fakeFetcher struct {
	objects map[string]string
}

func (f *fakeFetcher) GetRecording(_ context.Context, objectName string) (io.ReadCloser, string, error) {
	body, ok := f.objects[objectName]
	if !ok {
		return nil, "", io.EOF
	}
	return io.NopCloser(strings.NewReader(body)), "audio/wav", nil
}

func testRouter(classifier classification.Classifier, store *fakeStore, sender *alerting.MockSender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := newService(classifier, store, &fakeRecordings{}, sender)
	h := screening.NewHandlers(svc, store, &fakeFetcher{objects: map[string]string{}})

	router := gin.New()
	router.GET("/health", h.HealthHandler)
	router.POST("/analyze", h.AnalyzeHandler)
	router.POST("/mock-analyze", h.MockAnalyzeHandler)
	router.GET("/history/:patient_id", h.HistoryHandler)
	router.GET("/stats", h.StatsHandler)
	return router
}

// analyzeForm builds a multipart /analyze request.
func analyzeForm(filename string, fields map[string]string) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("audio", filename)
	part.Write([]byte("fake recording bytes"))
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAnalyzeHandler(t *testing.T) {
	Convey("Given the API backed by a high-confidence murmur model", t, func() {
		store := newFakeStore()
		sender := alerting.NewMockSender()
		router := testRouter(classification.NewFixedMockClassifier("murmur-detected", 0.91), store, sender)

		Convey("When a wav recording is posted with patient details", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, analyzeForm("heart.wav", map[string]string{
				"patient_id":   "PAT001",
				"patient_name": "Test Patient",
				"age":          "54",
				"phone":        "+15551234567",
			}))

			Convey("Then the response reports the finding and the sent alert", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)

				var resp screening.AnalyzeResponse
				So(json.Unmarshal(rr.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.ScreeningID, ShouldNotBeEmpty)

				want := screening.AnalyzeResponse{
					Prediction:  "murmur-detected",
					Confidence:  0.91,
					RiskLevel:   "high",
					MLSource:    "mock",
					SMSSent:     true,
					AlertStatus: "sent",
				}
				diff := cmp.Diff(want, resp, cmpopts.IgnoreFields(screening.AnalyzeResponse{},
					"ScreeningID", "Recommendation", "AudioFile"))
				So(diff, ShouldBeEmpty)
				So(len(sender.Sent), ShouldEqual, 1)
			})
		})

		Convey("When a text file is posted", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, analyzeForm("notes.txt", nil))

			Convey("Then the API answers 400 with the validation kind", func() {
				So(rr.Code, ShouldEqual, http.StatusBadRequest)
				So(rr.Body.String(), ShouldContainSubstring, `"error":"validation"`)
				So(len(store.records), ShouldEqual, 0)
			})
		})

		Convey("When the audio part is missing", func() {
			var buf bytes.Buffer
			w := multipart.NewWriter(&buf)
			w.WriteField("patient_id", "PAT001")
			w.Close()
			req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
			req.Header.Set("Content-Type", w.FormDataContentType())

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusBadRequest)
			So(rr.Body.String(), ShouldContainSubstring, "audio file is required")
		})

		Convey("When the age field is not numeric", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, analyzeForm("heart.wav", map[string]string{"age": "young"}))

			So(rr.Code, ShouldEqual, http.StatusBadRequest)
			So(rr.Body.String(), ShouldContainSubstring, "age must be an integer")
		})
	})

	Convey("Given the API backed by an unreachable model", t, func() {
		store := newFakeStore()
		router := testRouter(
			classification.NewFailingMockClassifier(io.ErrUnexpectedEOF),
			store, alerting.NewMockSender())

		Convey("When a recording is posted", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, analyzeForm("heart.wav", nil))

			Convey("Then the API answers 502 with the inference kind", func() {
				So(rr.Code, ShouldEqual, http.StatusBadGateway)
				So(rr.Body.String(), ShouldContainSubstring, `"error":"inference"`)
			})
		})
	})
}

func TestMockAnalyzeHandler(t *testing.T) {
	Convey("Given the API", t, func() {
		store := newFakeStore()
		router := testRouter(classification.NewMockClassifier(), store, alerting.NewMockSender())

		Convey("When a labeled result is posted to /mock-analyze", func() {
			body := strings.NewReader(`{"label": "murmur-detected", "confidence": 0.91}`)
			req := httptest.NewRequest(http.MethodPost, "/mock-analyze", body)
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Convey("Then the risk tier comes back without anything persisted", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				So(rr.Body.String(), ShouldContainSubstring, `"risk_level":"high"`)
				So(len(store.records), ShouldEqual, 0)
			})
		})

		Convey("When the payload is not JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/mock-analyze", strings.NewReader("nope"))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHistoryAndStatsHandlers(t *testing.T) {
	Convey("Given two completed screenings for one patient", t, func() {
		store := newFakeStore()
		sender := alerting.NewMockSender()
		router := testRouter(classification.NewFixedMockClassifier("normal", 0.97), store, sender)

		for _, key := range []string{"k1", "k2"} {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, analyzeForm("heart.wav", map[string]string{
				"patient_id": "PAT001",
				"dedup_key":  key,
			}))
			So(rr.Code, ShouldEqual, http.StatusOK)
		}

		Convey("When the patient's history is requested", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/history/PAT001", nil))

			Convey("Then both records come back", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				So(rr.Body.String(), ShouldContainSubstring, `"count":2`)
			})
		})

		Convey("When another patient's history is requested", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/history/PAT999", nil))

			Convey("Then the history is empty, not an error", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				So(rr.Body.String(), ShouldContainSubstring, `"count":0`)
				So(rr.Body.String(), ShouldContainSubstring, `"history":[]`)
			})
		})

		Convey("When stats are requested", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))

			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, `"total_screenings":2`)
		})
	})
}

func TestHealthHandler(t *testing.T) {
	Convey("Given the API", t, func() {
		router := testRouter(classification.NewMockClassifier(), newFakeStore(), alerting.NewMockSender())

		Convey("When health is requested", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			Convey("Then the report names the active model mode and formats", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				So(rr.Body.String(), ShouldContainSubstring, `"status":"healthy"`)
				So(rr.Body.String(), ShouldContainSubstring, `"mode":"mock"`)
				So(rr.Body.String(), ShouldContainSubstring, "wav")
			})
		})
	})
}

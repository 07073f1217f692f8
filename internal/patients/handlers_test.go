package patients_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"pulseecho/backend/internal/apperrors"
	"pulseecho/backend/internal/datastore"
	"pulseecho/backend/internal/patients"
)

type fakePatientStore struct {
	patients map[string]*datastore.Patient
}

func newFakePatientStore() *fakePatientStore {
	return &fakePatientStore{patients: make(map[string]*datastore.Patient)}
}

func (f *fakePatientStore) RegisterPatient(_ context.Context, p *datastore.Patient) error {
	cp := *p
	f.patients[p.PatientID] = &cp
	return nil
}

func (f *fakePatientStore) PatientExists(_ context.Context, patientID string) (bool, error) {
	_, ok := f.patients[patientID]
	return ok, nil
}

func (f *fakePatientStore) GetPatient(_ context.Context, patientID string) (*datastore.Patient, error) {
	p, ok := f.patients[patientID]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "patient not found")
	}
	cp := *p
	return &cp, nil
}

func patientRouter(store patients.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := patients.NewHandlers(store)
	router := gin.New()
	router.POST("/patients/register", h.RegisterHandler)
	router.POST("/patients/check", h.CheckHandler)
	router.GET("/patients/:patient_id", h.GetHandler)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRegisterHandler(t *testing.T) {
	Convey("Given the patients API", t, func() {
		store := newFakePatientStore()
		router := patientRouter(store)

		Convey("When a patient registers with all fields", func() {
			rr := postJSON(router, "/patients/register",
				`{"patient_id": "PAT001", "name": "Test Patient", "age": 54, "gender": "F", "phone": "+15551234567"}`)

			Convey("Then the patient is created", func() {
				So(rr.Code, ShouldEqual, http.StatusCreated)
				p := store.patients["PAT001"]
				So(p, ShouldNotBeNil)
				So(p.Name, ShouldEqual, "Test Patient")
				So(p.Age.Int64, ShouldEqual, 54)
				So(p.Phone.String, ShouldEqual, "+15551234567")
			})
		})

		Convey("When the client sends full_name instead of name", func() {
			rr := postJSON(router, "/patients/register",
				`{"patient_id": "PAT002", "full_name": "Other Patient"}`)

			So(rr.Code, ShouldEqual, http.StatusCreated)
			So(store.patients["PAT002"].Name, ShouldEqual, "Other Patient")
		})

		Convey("When no name is supplied at all", func() {
			rr := postJSON(router, "/patients/register", `{"patient_id": "PAT003"}`)

			So(rr.Code, ShouldEqual, http.StatusBadRequest)
			So(rr.Body.String(), ShouldContainSubstring, "name")
		})

		Convey("When patient_id is missing", func() {
			rr := postJSON(router, "/patients/register", `{"name": "No ID"}`)

			So(rr.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestCheckHandler(t *testing.T) {
	Convey("Given one registered patient", t, func() {
		store := newFakePatientStore()
		store.patients["PAT001"] = &datastore.Patient{PatientID: "PAT001", Name: "Test Patient"}
		router := patientRouter(store)

		Convey("A registered id reports exists", func() {
			rr := postJSON(router, "/patients/check", `{"patient_id": "PAT001"}`)
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, `"exists":true`)
		})

		Convey("An unknown id reports not exists", func() {
			rr := postJSON(router, "/patients/check", `{"patient_id": "PAT999"}`)
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, `"exists":false`)
		})

		Convey("A missing id is a validation error", func() {
			rr := postJSON(router, "/patients/check", `{}`)
			So(rr.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetHandler(t *testing.T) {
	Convey("Given one registered patient", t, func() {
		store := newFakePatientStore()
		store.patients["PAT001"] = &datastore.Patient{PatientID: "PAT001", Name: "Test Patient"}
		router := patientRouter(store)

		Convey("Fetching it returns the record", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/patients/PAT001", nil))
			So(rr.Code, ShouldEqual, http.StatusOK)
			So(rr.Body.String(), ShouldContainSubstring, "Test Patient")
		})

		Convey("Fetching an unknown id answers 404", func() {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/patients/PAT999", nil))
			So(rr.Code, ShouldEqual, http.StatusNotFound)
			So(rr.Body.String(), ShouldContainSubstring, `"error":"not_found"`)
		})
	})
}

package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"pulseecho/backend/internal/apperrors"
)

func TestKindOf(t *testing.T) {
	Convey("KindOf unwraps to the taxonomy kind", t, func() {
		err := apperrors.Wrap(apperrors.KindStorage, "failed to save", errors.New("connection refused"))
		So(apperrors.KindOf(err), ShouldEqual, apperrors.KindStorage)

		Convey("Even through further fmt.Errorf wrapping", func() {
			wrapped := fmt.Errorf("processing request: %w", err)
			So(apperrors.KindOf(wrapped), ShouldEqual, apperrors.KindStorage)
			So(apperrors.IsKind(wrapped, apperrors.KindStorage), ShouldBeTrue)
		})
	})

	Convey("Foreign errors report the internal kind", t, func() {
		So(apperrors.KindOf(errors.New("oops")), ShouldEqual, apperrors.KindInternal)
	})
}

func TestHTTPStatus(t *testing.T) {
	Convey("Each kind maps to its HTTP status", t, func() {
		cases := map[apperrors.Kind]int{
			apperrors.KindValidation: http.StatusBadRequest,
			apperrors.KindNotFound:   http.StatusNotFound,
			apperrors.KindInference:  http.StatusBadGateway,
			apperrors.KindAlert:      http.StatusBadGateway,
			apperrors.KindStorage:    http.StatusServiceUnavailable,
			apperrors.KindInternal:   http.StatusInternalServerError,
		}
		for kind, status := range cases {
			So(apperrors.HTTPStatus(apperrors.New(kind, "x")), ShouldEqual, status)
		}
	})
}

func TestMessageOf(t *testing.T) {
	Convey("MessageOf hides the wrapped cause from API callers", t, func() {
		err := apperrors.Wrap(apperrors.KindStorage, "failed to save screening", errors.New("dial tcp 10.0.0.1:5432"))
		So(apperrors.MessageOf(err), ShouldEqual, "failed to save screening")
		So(err.Error(), ShouldContainSubstring, "dial tcp")
	})

	Convey("Foreign errors fall back to their own text", t, func() {
		So(apperrors.MessageOf(errors.New("plain error")), ShouldEqual, "plain error")
	})
}

package bff

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/akipresenca/aki_device_agent/internal/models"
)

type ClientSuite struct {
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) submitAgainst(handler http.HandlerFunc) Result {
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	return client.Submit(context.Background(), models.AttendancePayload{
		DeviceID:   "device-1",
		QrToken:    "AKI_2026_ABC123",
		DeviceTime: time.Now().UTC(),
	})
}

func (s *ClientSuite) TestSubmitMapping() {
	s.Run("status ok is success", func() {
		res := s.submitAgainst(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/events/attendance", r.URL.Path)
			s.Equal("application/json", r.Header.Get("Content-Type"))

			var p models.AttendancePayload
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&p))
			s.Equal("AKI_2026_ABC123", p.QrToken)
			s.Nil(p.Location)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok","message":"welcome"}`))
		})
		s.Equal(Success, res.Kind)
		s.Equal("welcome", res.Message)
	})

	s.Run("result success is success", func() {
		res := s.submitAgainst(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":"success"}`))
		})
		s.Equal(Success, res.Kind)
	})

	s.Run("unrecognized 2xx body defaults to success", func() {
		res := s.submitAgainst(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`true`))
		})
		s.Equal(Success, res.Kind)
	})

	s.Run("2xx with business error status is an error", func() {
		res := s.submitAgainst(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"error","message":"nope"}`))
		})
		s.Equal(Error, res.Kind)
		s.Equal("nope", res.Message)
		s.False(res.Network)
	})

	s.Run("device_not_linked on 2xx", func() {
		res := s.submitAgainst(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"device_not_linked","message":"link first"}`))
		})
		s.Equal(DeviceNotLinked, res.Kind)
		s.Equal("link first", res.Message)
	})

	s.Run("device_not_linked code on 404", func() {
		res := s.submitAgainst(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":"device_not_linked"}`))
		})
		s.Equal(DeviceNotLinked, res.Kind)
	})

	s.Run("invalid_geolocation on 409", func() {
		res := s.submitAgainst(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"invalid_geolocation","message":"wrong room"}`))
		})
		s.Equal(InvalidGeolocation, res.Kind)
		s.Equal("wrong room", res.Message)
	})

	s.Run("unrecognized non-2xx is an error", func() {
		res := s.submitAgainst(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`boom`))
		})
		s.Equal(Error, res.Kind)
		s.False(res.Network)
	})
}

func (s *ClientSuite) TestSubmitNetworkFailure() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(srv.URL, time.Second)
	res := client.Submit(context.Background(), models.AttendancePayload{QrToken: "tok"})
	s.Equal(Error, res.Kind)
	s.True(res.Network)
}

func (s *ClientSuite) TestRegisterDevice() {
	s.Run("success", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/students/device", r.URL.Path)

			var body map[string]string
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
			s.Equal("11144477735", body["cpf"])
			s.Equal("device-1", body["device_id"])

			json.NewEncoder(w).Encode(RegistrationResponse{Success: true, Message: "linked", DeviceID: "device-1"})
		}))
		defer srv.Close()

		out, err := NewClient(srv.URL, time.Second).RegisterDevice(context.Background(), "11144477735", "device-1")
		s.Require().NoError(err)
		s.True(out.Success)
		s.Equal("device-1", out.DeviceID)
	})

	s.Run("non-2xx is an error", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(RegistrationResponse{Success: false, Message: "cpf already linked"})
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).RegisterDevice(context.Background(), "11144477735", "device-1")
		s.Error(err)
		s.Contains(err.Error(), "cpf already linked")
	})
}

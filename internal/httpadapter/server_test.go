package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/7krasov/process-dispatcher/internal/stopper"
	"github.com/7krasov/process-dispatcher/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssigner struct {
	assigned types.AssignedProcess
	found    bool
	err      error
}

func (f *fakeAssigner) AssignProcess(*stopper.Context, uuid.UUID) (types.AssignedProcess, bool, error) {
	return f.assigned, f.found, f.err
}

func newTestRouter(ctx *stopper.Context, assigner Assigner) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/assign_process/{supervisor_id}", assignProcessHandler(ctx, assigner))
	return r
}

func TestAssignProcessHandlerReturns200OnSuccess(t *testing.T) {
	assigner := &fakeAssigner{
		found:    true,
		assigned: types.AssignedProcess{ID: uuid.NewString(), SourceID: 7, State: "processing"},
	}
	router := newTestRouter(stopper.New(context.Background()), assigner)

	req := httptest.NewRequest(http.MethodPost, "/assign_process/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body types.AssignedProcess
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, assigner.assigned.ID, body.ID)
}

func TestAssignProcessHandlerReturns204WhenEmpty(t *testing.T) {
	assigner := &fakeAssigner{found: false}
	router := newTestRouter(stopper.New(context.Background()), assigner)

	req := httptest.NewRequest(http.MethodPost, "/assign_process/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAssignProcessHandlerReturns500OnRepositoryError(t *testing.T) {
	assigner := &fakeAssigner{err: assertErr{}}
	router := newTestRouter(stopper.New(context.Background()), assigner)

	req := httptest.NewRequest(http.MethodPost, "/assign_process/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAssignProcessHandlerReturns400OnMalformedSupervisorID(t *testing.T) {
	router := newTestRouter(stopper.New(context.Background()), &fakeAssigner{})

	req := httptest.NewRequest(http.MethodPost, "/assign_process/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type assertErr struct{}

func (assertErr) Error() string { return "repository unavailable" }

package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	mdw "github.com/nguyentranbao-ct/livechat/internal/server/middleware"
	"github.com/nguyentranbao-ct/livechat/internal/usecase"
)

// NoteController serves the Keeper notes of the authenticated user.
type NoteController interface {
	AddNote(c echo.Context, req addNoteRequest) (*mdw.Response, error)
	FetchNotes(c echo.Context, req fetchNotesRequest) ([]*models.Note, error)
	UpdateNote(c echo.Context, req updateNoteRequest) (*models.NoteResponse, error)
	DeleteNote(c echo.Context, req deleteNoteRequest) (*models.NoteResponse, error)
}

type noteController struct {
	notes usecase.NoteUsecase
}

func NewNoteController(notes usecase.NoteUsecase) NoteController {
	return &noteController{notes: notes}
}

func (nc *noteController) AddNote(c echo.Context, req addNoteRequest) (*mdw.Response, error) {
	note, err := nc.notes.Add(c.Request().Context(), req.owner(), req.AddNoteRequest)
	if err != nil {
		return nil, err
	}
	return mdw.Created(note), nil
}

func (nc *noteController) FetchNotes(c echo.Context, req fetchNotesRequest) ([]*models.Note, error) {
	return nc.notes.Fetch(c.Request().Context(), req.owner())
}

func (nc *noteController) UpdateNote(c echo.Context, req updateNoteRequest) (*models.NoteResponse, error) {
	note, err := nc.notes.Update(c.Request().Context(), req.owner(), req.oid(), req.NotePatch)
	if err != nil {
		return nil, err
	}
	return &models.NoteResponse{Note: note}, nil
}

func (nc *noteController) DeleteNote(c echo.Context, req deleteNoteRequest) (*models.NoteResponse, error) {
	note, err := nc.notes.Delete(c.Request().Context(), req.owner(), req.oid())
	if err != nil {
		return nil, err
	}
	return &models.NoteResponse{Note: note}, nil
}

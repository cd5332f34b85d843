package api

import (
	"github.com/adeilh/minutes/httpx"
	"github.com/adeilh/minutes/meeting"
)

type createMeetingRequest struct {
	Title      string `json:"title"`
	TemplateID string `json:"template_id"`
}

func (a *API) listTemplates(c httpx.Context) error {
	out, err := a.meetings.ListTemplates(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) getTemplate(c httpx.Context) error {
	out, err := a.meetings.GetTemplate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) listMeetings(c httpx.Context) error {
	out, err := a.meetings.ListMeetings(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) createMeeting(c httpx.Context) error {
	var req createMeetingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	out, err := a.meetings.CreateMeeting(c.Request().Context(), req.Title, req.TemplateID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusCreated, out)
}

func (a *API) getMeeting(c httpx.Context) error {
	out, err := a.meetings.GetMeeting(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) updateMeeting(c httpx.Context) error {
	var patch meeting.MeetingPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	out, err := a.meetings.UpdateMeeting(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) getFull(c httpx.Context) error {
	out, err := a.meetings.GetFull(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) listTasks(c httpx.Context) error {
	out, err := a.meetings.ListTasks(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if out == nil {
		out = []meeting.Task{}
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) recordingStatus(c httpx.Context) error {
	out, err := a.meetings.RecordingStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) startRecording(c httpx.Context) error {
	out, err := a.meetings.StartRecording(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) stopRecording(c httpx.Context) error {
	out, err := a.meetings.StopRecording(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) listSections(c httpx.Context) error {
	out, err := a.meetings.ListSections(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if out == nil {
		out = []meeting.Section{}
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) sectionsStatus(c httpx.Context) error {
	out, err := a.meetings.SectionsStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if out == nil {
		out = []meeting.SectionSummary{}
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) updateSection(c httpx.Context) error {
	var patch meeting.SectionPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	out, err := a.meetings.UpdateSection(c.Request().Context(), c.Param("id"), c.Param("sid"), patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) listItems(c httpx.Context) error {
	out, err := a.meetings.ListItems(c.Request().Context(), c.Param("id"), c.Param("sid"))
	if err != nil {
		return httpError(err)
	}
	if out == nil {
		out = []meeting.Item{}
	}
	return c.JSON(httpx.StatusOK, out)
}

func (a *API) updateItem(c httpx.Context) error {
	var patch meeting.ItemPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	out, err := a.meetings.UpdateItem(c.Request().Context(), c.Param("id"), c.Param("sid"), c.Param("iid"), patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, out)
}

package calendar

import (
	"time"

	"github.com/emersion/go-ical"

	"github.com/nhle/todosync/internal/model"
)

const productID = "-//nhle//todosync//EN"

// todoComponent returns the first VTODO of an iCalendar object.
func todoComponent(cal *ical.Calendar) *ical.Component {
	if cal == nil {
		return nil
	}
	for _, child := range cal.Children {
		if child.Name == ical.CompToDo {
			return child
		}
	}
	return nil
}

// parseTodo maps the VTODO stored at path onto the model. It reports false
// for objects without a VTODO.
func parseTodo(path string, cal *ical.Calendar) (model.Todo, bool) {
	comp := todoComponent(cal)
	if comp == nil {
		return model.Todo{}, false
	}

	todo := model.Todo{Key: path, Status: model.StatusNeedsAction}

	todo.UID, _ = comp.Props.Text(ical.PropUID)
	todo.Summary, _ = comp.Props.Text(ical.PropSummary)
	todo.Description, _ = comp.Props.Text(ical.PropDescription)
	todo.Location, _ = comp.Props.Text(ical.PropLocation)

	if status, _ := comp.Props.Text(ical.PropStatus); status != "" {
		todo.Status = model.TodoStatus(status)
	}
	todo.CompletedAt = dateTime(comp, ical.PropCompleted)
	todo.LastModified = dateTime(comp, ical.PropLastModified)

	return todo, true
}

func dateTime(comp *ical.Component, name string) *time.Time {
	prop := comp.Props.Get(name)
	if prop == nil {
		return nil
	}
	t, err := prop.DateTime(time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// newTodoCalendar builds the iCalendar object for a new todo.
func newTodoCalendar(uid string, todo model.NewTodo, now time.Time) *ical.Calendar {
	now = now.UTC()

	comp := ical.NewComponent(ical.CompToDo)
	comp.Props.SetText(ical.PropUID, uid)
	comp.Props.SetDateTime(ical.PropDateTimeStamp, now)
	comp.Props.SetDateTime(ical.PropCreated, now)
	comp.Props.SetText(ical.PropSummary, todo.Summary)

	status := todo.Status
	if status == "" {
		status = model.StatusNeedsAction
	}
	comp.Props.SetText(ical.PropStatus, string(status))

	if todo.Description != "" {
		comp.Props.SetText(ical.PropDescription, todo.Description)
	}
	if todo.Location != "" {
		comp.Props.SetText(ical.PropLocation, todo.Location)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, comp)
	return cal
}

// setComplete moves a VTODO into the completed state.
func setComplete(comp *ical.Component, now time.Time) {
	now = now.UTC()
	comp.Props.SetText(ical.PropStatus, string(model.StatusCompleted))
	comp.Props.SetDateTime(ical.PropCompleted, now)

	percent := ical.NewProp(ical.PropPercentComplete)
	percent.Value = "100"
	comp.Props.Set(percent)

	comp.Props.SetDateTime(ical.PropLastModified, now)
}

// setIncomplete moves a VTODO back to NEEDS-ACTION. Recurrence is not
// considered.
func setIncomplete(comp *ical.Component, now time.Time) {
	comp.Props.SetText(ical.PropStatus, string(model.StatusNeedsAction))
	delete(comp.Props, ical.PropCompleted)
	delete(comp.Props, ical.PropPercentComplete)
	comp.Props.SetDateTime(ical.PropLastModified, now.UTC())
}

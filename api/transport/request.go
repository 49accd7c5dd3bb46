package transport

import (
	"strconv"

	"github.com/valyala/fasthttp"
)

// TaskListQuery carries the filters of GET /api/v1/tasks.
type TaskListQuery struct {
	View string `json:"view"`
}

func ParseTaskListQuery(args *fasthttp.Args) TaskListQuery {
	return TaskListQuery{View: string(args.Peek("view"))}
}

// ParseID reads a positive numeric path value.
func ParseID(raw interface{}) (int64, bool) {
	s, _ := raw.(string)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
)

var (
	app       = kingpin.New("taskhive", "Admin CLI for the TaskHive marketplace backend")
	serverURL = app.Flag("server", "TaskHive server base URL").Default("http://localhost:3200").Envar("TASKHIVE_SERVER").String()
	apiKey    = app.Flag("api-key", "API key").Envar("TASKHIVE_API_KEY").String()

	taskCmd = app.Command("task", "Task operations")

	taskCreateCmd      = taskCmd.Command("create", "Create a task on behalf of a client")
	taskCreateClient   = taskCreateCmd.Flag("client", "Client ID").Required().String()
	taskCreateTitle    = taskCreateCmd.Arg("title", "Task title").Required().String()
	taskCreateType     = taskCreateCmd.Flag("type", "Task type (personal|business)").Default("personal").String()
	taskCreateDesc     = taskCreateCmd.Flag("description", "Task description").String()
	taskCreateDeadline = taskCreateCmd.Flag("deadline-hours", "Deadline in hours from now").Int()

	taskListCmd       = taskCmd.Command("list", "List tasks")
	taskListClient    = taskListCmd.Flag("client", "Filter by client ID").String()
	taskListAssistant = taskListCmd.Flag("assistant", "Filter by assistant ID").String()
	taskListStatus    = taskListCmd.Flag("status", "Filter by status").String()

	taskShowCmd = taskCmd.Command("show", "Show task details")
	taskShowID  = taskShowCmd.Arg("id", "Task ID").Required().String()

	taskClaimCmd       = taskCmd.Command("claim", "Claim a task for an assistant")
	taskClaimID        = taskClaimCmd.Arg("id", "Task ID").Required().String()
	taskClaimAssistant = taskClaimCmd.Flag("assistant", "Assistant ID").Required().String()

	taskCompleteCmd       = taskCmd.Command("complete", "Submit a task result")
	taskCompleteID        = taskCompleteCmd.Arg("id", "Task ID").Required().String()
	taskCompleteAssistant = taskCompleteCmd.Flag("assistant", "Assistant ID").Required().String()
	taskCompleteResult    = taskCompleteCmd.Flag("result", "Detailed result").Required().String()
	taskCompleteSummary   = taskCompleteCmd.Flag("summary", "Completion summary").String()

	taskApproveCmd      = taskCmd.Command("approve", "Approve a completed task")
	taskApproveID       = taskApproveCmd.Arg("id", "Task ID").Required().String()
	taskApproveClient   = taskApproveCmd.Flag("client", "Client ID").Required().String()
	taskApproveRating   = taskApproveCmd.Flag("rating", "Rating 1-5").Required().Int()
	taskApproveFeedback = taskApproveCmd.Flag("feedback", "Feedback").Required().String()

	taskRevisionCmd      = taskCmd.Command("revision", "Request a revision on a completed task")
	taskRevisionID       = taskRevisionCmd.Arg("id", "Task ID").Required().String()
	taskRevisionClient   = taskRevisionCmd.Flag("client", "Client ID").Required().String()
	taskRevisionFeedback = taskRevisionCmd.Flag("feedback", "What to change").Required().String()
	taskRevisionExtra    = taskRevisionCmd.Flag("requirements", "Additional requirements").String()

	taskRejectCmd       = taskCmd.Command("reject", "Return a task to the marketplace")
	taskRejectID        = taskRejectCmd.Arg("id", "Task ID").Required().String()
	taskRejectAssistant = taskRejectCmd.Flag("assistant", "Assistant ID").Required().String()
	taskRejectReason    = taskRejectCmd.Flag("reason", "Reason").Required().String()

	taskCancelCmd = taskCmd.Command("cancel", "Cancel a pending task")
	taskCancelID  = taskCancelCmd.Arg("id", "Task ID").Required().String()
	taskCancelBy  = taskCancelCmd.Flag("by", "Acting user ID").Required().String()

	taskAssignCmd       = taskCmd.Command("assign", "Manager: set or clear a task's assignee")
	taskAssignID        = taskAssignCmd.Arg("id", "Task ID").Required().String()
	taskAssignAssistant = taskAssignCmd.Flag("assistant", "Assistant ID (omit to unassign)").String()
	taskAssignBy        = taskAssignCmd.Flag("by", "Manager ID").String()

	marketCmd       = app.Command("marketplace", "Show the claimable tasks for an assistant")
	marketAssistant = marketCmd.Flag("assistant", "Assistant ID").Required().String()

	assistantCmd = app.Command("assistant", "Assistant operations")

	assistantRegisterCmd  = assistantCmd.Command("register", "Register an assistant")
	assistantRegisterName = assistantRegisterCmd.Arg("name", "Assistant name").Required().String()
	assistantRegisterSpec = assistantRegisterCmd.Flag("specialization", "personal_only|business_only|full_access").Default("full_access").String()

	assistantListCmd = assistantCmd.Command("list", "List assistants")

	assistantStatusCmd   = assistantCmd.Command("status", "Set an assistant online or offline")
	assistantStatusID    = assistantStatusCmd.Arg("id", "Assistant ID").Required().String()
	assistantStatusValue = assistantStatusCmd.Arg("status", "online|offline").Required().String()

	clientCmd = app.Command("client", "Client operations")

	clientRegisterCmd     = clientCmd.Command("register", "Register a client")
	clientRegisterName    = clientRegisterCmd.Arg("name", "Client name").Required().String()
	clientRegisterContact = clientRegisterCmd.Flag("contact", "Contact").String()

	clientSubscribeCmd    = clientCmd.Command("subscribe", "Set a client's subscription (payment hook)")
	clientSubscribeID     = clientSubscribeCmd.Arg("id", "Client ID").Required().String()
	clientSubscribePlan   = clientSubscribeCmd.Flag("plan", "Plan name, e.g. personal_5h").Required().String()
	clientSubscribeStatus = clientSubscribeCmd.Flag("status", "Subscription status").Default("active").String()

	assignCmd         = app.Command("assign", "Manager: standing client-to-assistant preference")
	assignClientID    = assignCmd.Arg("client", "Client ID").Required().String()
	assignAssistantID = assignCmd.Arg("assistant", "Assistant ID").Required().String()
	assignManagerID   = assignCmd.Flag("by", "Manager ID").Required().String()

	statsCmd     = app.Command("stats", "Dashboard stats")
	statsActor   = statsCmd.Flag("actor", "client|assistant|manager").Default("manager").String()
	statsActorID = statsCmd.Flag("id", "Actor ID").String()
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

type api struct {
	base   string
	apiKey string
	client *http.Client
}

func (a *api) do(method, path string, query url.Values, body any) (json.RawMessage, error) {
	u := a.base + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code    string `json:"code"`
			Reason  string `json:"reason"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			if apiErr.Reason != "" {
				return nil, fmt.Errorf("%s (%s): %s", apiErr.Code, apiErr.Reason, apiErr.Message)
			}
			return nil, fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func printJSON(data json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(buf.String())
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	a := &api{
		base:   *serverURL,
		apiKey: *apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}

	var (
		out json.RawMessage
		err error
	)
	switch command {
	case taskCreateCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/tasks", nil, map[string]any{
			"client_id":      *taskCreateClient,
			"title":          *taskCreateTitle,
			"description":    *taskCreateDesc,
			"task_type":      *taskCreateType,
			"deadline_hours": *taskCreateDeadline,
		})
	case taskListCmd.FullCommand():
		q := url.Values{}
		if *taskListClient != "" {
			q.Set("client_id", *taskListClient)
		}
		if *taskListAssistant != "" {
			q.Set("assistant_id", *taskListAssistant)
		}
		if *taskListStatus != "" {
			q.Set("status", *taskListStatus)
		}
		out, err = a.do(http.MethodGet, "/tasks", q, nil)
	case taskShowCmd.FullCommand():
		out, err = a.do(http.MethodGet, "/tasks/"+*taskShowID, nil, nil)
	case taskClaimCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/tasks/"+*taskClaimID+"/claim", nil, map[string]any{
			"assistant_id": *taskClaimAssistant,
		})
	case taskCompleteCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/tasks/"+*taskCompleteID+"/complete", nil, map[string]any{
			"assistant_id":       *taskCompleteAssistant,
			"detailed_result":    *taskCompleteResult,
			"completion_summary": *taskCompleteSummary,
		})
	case taskApproveCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/tasks/"+*taskApproveID+"/approve", nil, map[string]any{
			"client_id": *taskApproveClient,
			"rating":    *taskApproveRating,
			"feedback":  *taskApproveFeedback,
		})
	case taskRevisionCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/tasks/"+*taskRevisionID+"/revision", nil, map[string]any{
			"client_id":               *taskRevisionClient,
			"feedback":                *taskRevisionFeedback,
			"additional_requirements": *taskRevisionExtra,
		})
	case taskRejectCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/tasks/"+*taskRejectID+"/reject", nil, map[string]any{
			"assistant_id": *taskRejectAssistant,
			"reason":       *taskRejectReason,
		})
	case taskCancelCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/tasks/"+*taskCancelID+"/cancel", nil, map[string]any{
			"cancelled_by": *taskCancelBy,
		})
	case taskAssignCmd.FullCommand():
		body := map[string]any{"assistant_id": nil, "manager_id": *taskAssignBy}
		if *taskAssignAssistant != "" {
			body["assistant_id"] = *taskAssignAssistant
		}
		out, err = a.do(http.MethodPut, "/tasks/"+*taskAssignID+"/assignee", nil, body)
	case marketCmd.FullCommand():
		q := url.Values{"assistant_id": {*marketAssistant}}
		out, err = a.do(http.MethodGet, "/marketplace", q, nil)
	case assistantRegisterCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/assistants", nil, map[string]any{
			"name":           *assistantRegisterName,
			"specialization": *assistantRegisterSpec,
		})
	case assistantListCmd.FullCommand():
		out, err = a.do(http.MethodGet, "/assistants", nil, nil)
	case assistantStatusCmd.FullCommand():
		out, err = a.do(http.MethodPut, "/assistants/"+*assistantStatusID+"/status", nil, map[string]any{
			"status": *assistantStatusValue,
		})
	case clientRegisterCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/clients", nil, map[string]any{
			"name":    *clientRegisterName,
			"contact": *clientRegisterContact,
		})
	case clientSubscribeCmd.FullCommand():
		out, err = a.do(http.MethodPut, "/clients/"+*clientSubscribeID+"/subscription", nil, map[string]any{
			"plan":   *clientSubscribePlan,
			"status": *clientSubscribeStatus,
		})
	case assignCmd.FullCommand():
		out, err = a.do(http.MethodPost, "/assignments", nil, map[string]any{
			"client_id":    *assignClientID,
			"assistant_id": *assignAssistantID,
			"assigned_by":  *assignManagerID,
		})
	case statsCmd.FullCommand():
		q := url.Values{"actor": {*statsActor}}
		if *statsActorID != "" {
			q.Set("actor_id", *statsActorID)
		}
		out, err = a.do(http.MethodGet, "/stats", q, nil)
	}

	if err != nil {
		red.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if out != nil {
		green.Println("ok")
		printJSON(out)
	} else {
		yellow.Println("nothing to do")
	}
}

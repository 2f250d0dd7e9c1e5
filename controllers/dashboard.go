package controllers

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voltflow-backend/logger"
	"voltflow-backend/models"
	"voltflow-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type historyStore interface {
	RecentMessages(ctx context.Context, phone string, limit int) ([]models.Message, error)
	VoicemailsForPhone(ctx context.Context, phone string, limit int) ([]models.Voicemail, error)
}

// History is what the dashboard shows for one phone, newest first
type History struct {
	Messages   []models.Message   `json:"messages"`
	Voicemails []models.Voicemail `json:"voicemails"`
}

type DashboardController struct {
	store       historyStore
	callingCode string
}

func NewDashboardController(store historyStore, callingCode string) *DashboardController {
	return &DashboardController{store: store, callingCode: callingCode}
}

// Phone returns the normalized phone query parameter, "" when absent
func (ctl *DashboardController) Phone(c *gin.Context) string {
	return utils.NormalizePhone(strings.TrimSpace(c.Query("phone")), ctl.callingCode)
}

// Lookup shows the phone form, or redirects to the view when a phone is given
func (ctl *DashboardController) Lookup(c *gin.Context) {
	phone := ctl.Phone(c)
	if phone == "" {
		c.HTML(http.StatusOK, "dashboard_form", nil)
		return
	}

	q := url.Values{}
	q.Set("phone", phone)
	if token := c.Query("token"); token != "" {
		q.Set("token", token)
	}
	c.Redirect(http.StatusFound, "/dashboard/view?"+q.Encode())
}

func (ctl *DashboardController) View(c *gin.Context) {
	phone := ctl.Phone(c)
	if phone == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Phone number required")
		return
	}

	history, err := ctl.history(c.Request.Context(), phone)
	if err != nil {
		logger.Error("Error loading dashboard", zap.String("phone", phone), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.HTML(http.StatusOK, "dashboard_view", gin.H{
		"Phone":      phone,
		"Messages":   history.Messages,
		"Voicemails": history.Voicemails,
	})
}

// Messages is the JSON form of the dashboard for a hosted front end
func (ctl *DashboardController) Messages(c *gin.Context) {
	phone := ctl.Phone(c)
	if phone == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing phone")
		return
	}

	history, err := ctl.history(c.Request.Context(), phone)
	if err != nil {
		logger.Error("Error fetching messages", zap.String("phone", phone), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Error fetching messages")
		return
	}
	c.JSON(http.StatusOK, history)
}

func (ctl *DashboardController) history(ctx context.Context, phone string) (*History, error) {
	msgs, err := ctl.store.RecentMessages(ctx, phone, 0)
	if err != nil {
		return nil, err
	}
	vms, err := ctl.store.VoicemailsForPhone(ctx, phone, 0)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	if vms == nil {
		vms = []models.Voicemail{}
	}
	return &History{Messages: msgs, Voicemails: vms}, nil
}

// DashboardTemplates are rendered with html/template so stored text is escaped
func DashboardTemplates() *template.Template {
	funcs := template.FuncMap{
		"datetime": func(t time.Time) string {
			return t.Format("2 Jan 2006 3:04 PM")
		},
	}
	t := template.Must(template.New("dashboard_form").Funcs(funcs).Parse(dashboardFormHTML))
	template.Must(t.New("dashboard_view").Parse(dashboardViewHTML))
	return t
}

const dashboardStyle = `<style>
body { margin: 0; padding: 2rem; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background: #0a0a0a; color: #f5f5f5; }
h1, h2 { color: #ffd400; }
table { width: 100%; border-collapse: collapse; margin-bottom: 2rem; }
th, td { padding: 0.5rem; border-bottom: 1px solid #333; text-align: left; vertical-align: top; }
th { color: #ffd400; }
input, button { padding: 0.5rem; font-size: 1rem; }
</style>`

const dashboardFormHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>TradeAssist A.I Dashboard</title>
` + dashboardStyle + `
</head>
<body>
<h1>TradeAssist A.I Dashboard</h1>
<form method="get" action="/dashboard">
<input type="tel" name="phone" placeholder="Customer phone number" required />
<button type="submit">View history</button>
</form>
</body>
</html>`

const dashboardViewHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>TradeAssist A.I Dashboard</title>
` + dashboardStyle + `
</head>
<body>
<h1>History for {{.Phone}}</h1>
<h2>Messages</h2>
{{if .Messages}}
<table>
<tr><th>Time</th><th>Customer</th><th>Assistant</th></tr>
{{range .Messages}}<tr><td>{{datetime .CreatedAt}}</td><td>{{.Incoming}}</td><td>{{.Outgoing}}</td></tr>
{{end}}
</table>
{{else}}<p>No messages yet.</p>{{end}}
<h2>Voicemails</h2>
{{if .Voicemails}}
<table>
<tr><th>Time</th><th>Transcription</th><th>AI reply</th><th>Recording</th></tr>
{{range .Voicemails}}<tr><td>{{datetime .CreatedAt}}</td><td>{{.Transcription}}</td><td>{{.AIReply}}</td><td>{{if .RecordingURL}}<a href="{{.RecordingURL}}">Listen</a>{{end}}</td></tr>
{{end}}
</table>
{{else}}<p>No voicemails yet.</p>{{end}}
</body>
</html>`

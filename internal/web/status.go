package web

import (
	"html/template"
	"net/http"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WebhookPath is where Telegram delivers updates in webhook mode
const WebhookPath = "/webhook"

// Server exposes the status page, the Telegram webhook endpoint and the
// metrics scrape endpoint.
type Server struct {
	botName     string
	botUsername string
	maskedToken string
	channelID   string
	webhook     http.Handler
	logger      domain.Logger
}

// NewServer creates a new Server. The webhook handler may be nil when the
// bot runs in polling mode; the route is then omitted.
func NewServer(botName, botUsername, token, channelID string, webhook http.Handler, log domain.Logger) *Server {
	return &Server{
		botName:     botName,
		botUsername: botUsername,
		maskedToken: MaskToken(token),
		channelID:   channelID,
		webhook:     webhook,
		logger:      log,
	}
}

// Router returns the configured chi router
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", s.handleStatus)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	if s.webhook != nil {
		r.Post(WebhookPath, s.webhook.ServeHTTP)
	}

	return r
}

type statusData struct {
	BotName     string
	BotUsername string
	MaskedToken string
	ChannelID   string
	WebhookPath string
	ServerTime  string
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")

	err := statusTemplate.Execute(w, statusData{
		BotName:     s.botName,
		BotUsername: s.botUsername,
		MaskedToken: s.maskedToken,
		ChannelID:   s.channelID,
		WebhookPath: WebhookPath,
		ServerTime:  time.Now().Format("02.01.2006 15:04:05"),
	})
	if err != nil {
		s.logger.Error("failed to render status page", "error", err)
	}
}

// MaskToken hides the secret part of the bot token for display
func MaskToken(token string) string {
	if len(token) < 16 {
		return "***"
	}
	return token[:8] + "..." + token[len(token)-5:]
}

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Telegram Бот для Конкурсов</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
      background: #f5f5f5;
      color: #333;
      line-height: 1.6;
      margin: 0;
      padding: 20px;
      display: flex;
      justify-content: center;
    }
    .container {
      max-width: 800px;
      background: white;
      padding: 30px;
      border-radius: 8px;
      box-shadow: 0 2px 10px rgba(0,0,0,0.1);
    }
    h1 { color: #0088cc; margin-top: 0; }
    .status {
      display: inline-block;
      padding: 5px 10px;
      background: #4CAF50;
      color: white;
      border-radius: 4px;
      font-weight: bold;
    }
    pre {
      background: #f7f7f7;
      padding: 15px;
      border-radius: 4px;
      overflow-x: auto;
    }
    .info {
      margin: 20px 0;
      padding: 15px;
      background: #e7f3fe;
      border-left: 5px solid #2196F3;
    }
  </style>
</head>
<body>
  <div class="container">
    <h1>Telegram Бот для Конкурсов</h1>
    <p class="status">Активен</p>

    <div class="info">
      <h3>Информация о боте</h3>
      <p><strong>Имя бота:</strong> {{.BotName}}</p>
      <p><strong>Username:</strong> @{{.BotUsername}}</p>
      <p><strong>Webhook:</strong> {{.WebhookPath}}</p>
      <p><strong>Токен (маска):</strong> {{.MaskedToken}}</p>
      <p><strong>Канал:</strong> {{.ChannelID}}</p>
      <p>Время сервера: {{.ServerTime}}</p>
    </div>

    <h2>Доступные команды</h2>
    <pre>/start - Начать работу с ботом
/admin - Админ-панель (только для администратора)
/new_contest - Создать новый конкурс (только для администратора)
/list_contests - Просмотреть список конкурсов (только для администратора)
/registrations [ID] - Просмотр регистраций на конкурс (только для администратора)
/edit_buttons [ID] - Изменение кнопок конкурса (только для администратора)
/set_deadline [ID] [дата] - Установка дедлайна конкурса (только для администратора)
/broadcast [ID] [текст] - Рассылка участникам конкурса (только для администратора)</pre>
  </div>
</body>
</html>
`))

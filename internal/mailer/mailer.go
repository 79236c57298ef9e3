package mailer

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"slices"
	"time"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/utils"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

const itineraryReadySubject = "行程规划 - 您的行程已生成"

// Sender 抽象出邮件客户端的发送能力
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Mailer struct {
	sender Sender
	from   string
	tmpl   *template.Template
}

// NewClient 按照配置创建 SMTP 客户端，并验证能否连接到邮件服务器
func NewClient(cfg *config.Config) (*mail.Client, error) {
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func New(sender Sender, from string) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/itinerary_ready.html")
	if err != nil {
		return nil, err
	}
	return &Mailer{sender: sender, from: from, tmpl: tmpl}, nil
}

// MailData 把任务结果整理成按日期排序的邮件内容，没有安排地点的日期也会列出
func MailData(job *domain.ItineraryJob) (*domain.ItineraryReadyMailData, error) {
	if job.Result == nil {
		return nil, fmt.Errorf("任务 %s 没有结果", job.ID)
	}

	data := &domain.ItineraryReadyMailData{
		JobID:       job.ID,
		StartDate:   job.Request.StartDate,
		EndDate:     job.Request.EndDate,
		BestFitness: job.Result.BestFitness,
	}

	dates := make([]string, 0, len(job.Result.Itinerary))
	start, startErr := utils.ParseDate(job.Request.StartDate)
	end, endErr := utils.ParseDate(job.Request.EndDate)
	if startErr == nil && endErr == nil {
		for _, d := range utils.DateRange(start, end) {
			dates = append(dates, utils.FormatDate(d))
		}
	} else {
		for date := range job.Result.Itinerary {
			dates = append(dates, date)
		}
		slices.Sort(dates)
	}

	for _, date := range dates {
		day := domain.ItineraryMailDay{Date: date}
		for _, p := range job.Result.Itinerary[date].Places {
			day.Places = append(day.Places, p.Name)
		}
		data.Days = append(data.Days, day)
	}
	return data, nil
}

func (m *Mailer) buildMessage(to string, job *domain.ItineraryJob) (*mail.Msg, error) {
	data, err := MailData(job)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	msg.Subject(itineraryReadySubject)
	if err := msg.SetBodyHTMLTemplate(m.tmpl, data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	return msg, nil
}

func (m *Mailer) NotifyItineraryReady(ctx context.Context, to string, job *domain.ItineraryJob) error {
	msg, err := m.buildMessage(to, job)
	if err != nil {
		return err
	}
	return m.sender.DialAndSendWithContext(ctx, msg)
}

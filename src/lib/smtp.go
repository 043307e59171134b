package lib

import (
	"bytes"
	"context"
	"log"
	"os"
	"strconv"

	"github.com/wneessen/go-mail"
)

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type SendMailInput struct {
	From        string
	FromName    string
	To          []string
	Cc          []string
	Bcc         []string
	ReplyTo     string
	Subject     string
	Body        string
	TextBody    string
	Html        bool
	Attachments []Attachment
}

func GetSMTPClient() (*mail.Client, error) {
	host := os.Getenv("SMTP_HOST")
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	user := os.Getenv("SMTP_USERNAME")
	pass := os.Getenv("SMTP_PASSWORD")
	opts := []mail.Option{mail.WithPort(port), mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if user != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(user), mail.WithPassword(pass))
	}
	c, err := mail.NewClient(host, opts...)
	if err != nil {
		log.Printf("Could not initialize smtp client: %s\n", err.Error())
		return nil, err
	}
	return c, nil
}

// BuildMessage renders input into a MIME message. Invalid addresses fail the
// build.
func BuildMessage(inputParams *SendMailInput) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(inputParams.FromName, inputParams.From); err != nil {
		log.Printf("Failed to set From address: %s\n", err.Error())
		return nil, err
	}
	if err := msg.To(inputParams.To...); err != nil {
		log.Printf("Failed to set To address: %s\n", err.Error())
		return nil, err
	}
	if inputParams.ReplyTo != "" {
		if err := msg.ReplyTo(inputParams.ReplyTo); err != nil {
			log.Printf("Failed to set Reply-To address: %s\n", err.Error())
		}
	}
	if len(inputParams.Cc) > 0 {
		if err := msg.Cc(inputParams.Cc...); err != nil {
			log.Printf("Failed to set Cc address: %s\n", err.Error())
		}
	}
	if len(inputParams.Bcc) > 0 {
		if err := msg.Bcc(inputParams.Bcc...); err != nil {
			log.Printf("Failed to set Bcc address: %s\n", err.Error())
		}
	}
	msg.Subject(inputParams.Subject)
	msg.SetMessageID()
	msg.SetDate()
	if inputParams.Html {
		msg.SetBodyString(mail.TypeTextHTML, inputParams.Body)
		if inputParams.TextBody != "" {
			msg.AddAlternativeString(mail.TypeTextPlain, inputParams.TextBody)
		}
	} else {
		msg.SetBodyString(mail.TypeTextPlain, inputParams.Body)
	}
	for _, a := range inputParams.Attachments {
		if err := msg.AttachReader(a.Name, bytes.NewReader(a.Data), mail.WithFileContentType(mail.ContentType(a.ContentType))); err != nil {
			log.Printf("Failed to attach %s: %s\n", a.Name, err.Error())
			return nil, err
		}
	}
	return msg, nil
}

// RawMessage returns the message as it goes on the wire.
func RawMessage(msg *mail.Msg) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func SendMail(ctx context.Context, inputParams *SendMailInput) error {
	msg, err := BuildMessage(inputParams)
	if err != nil {
		return err
	}
	c, err := GetSMTPClient()
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, msg)
}

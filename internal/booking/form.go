package booking

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Services фиксированный список услуг в форме
var Services = []string{
	"Cinematography",
	"Drone Shoots",
	"Video Editing",
	"Creative Direction",
	"Wedding Film",
	"Brand Shoot",
}

// Имена полей формы
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldPhone   = "phone"
	FieldService = "service"
	FieldMessage = "message"
)

// Request данные заявки на съемку
type Request struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Service string `json:"service"`
	Message string `json:"message,omitempty"`
}

// FieldErrors поле -> первое нарушенное правило
type FieldErrors map[string]string

// Validate обрезает пробелы и проверяет заявку по фиксированной схеме.
// Возвращает очищенную заявку; ошибки пустые, если заявка корректна.
func Validate(req Request) (Request, FieldErrors) {
	clean := Request{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Service: req.Service,
		Message: strings.TrimSpace(req.Message),
	}

	errs := FieldErrors{}

	switch {
	case clean.Name == "":
		errs[FieldName] = "Name is required"
	case tooLong(clean.Name, 100):
		errs[FieldName] = "Name must be at most 100 characters"
	}

	switch {
	case !validEmail(clean.Email):
		errs[FieldEmail] = "Invalid email address"
	case tooLong(clean.Email, 255):
		errs[FieldEmail] = "Email must be at most 255 characters"
	}

	if tooLong(clean.Phone, 20) {
		errs[FieldPhone] = "Phone must be at most 20 characters"
	}

	switch {
	case clean.Service == "":
		errs[FieldService] = "Please select a service"
	case !knownService(clean.Service):
		errs[FieldService] = "Unknown service"
	}

	if tooLong(clean.Message, 1000) {
		errs[FieldMessage] = "Message must be at most 1000 characters"
	}

	return clean, errs
}

func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

// validEmail проверяет форму адреса: local@domain.tld без отображаемого имени
func validEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	domain := s[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

func knownService(s string) bool {
	for _, known := range Services {
		if s == known {
			return true
		}
	}
	return false
}

// Submitter принимает проверенную заявку
type Submitter interface {
	Submit(ctx context.Context, req Request) (string, error)
}

// Form состояние формы на время одной сессии страницы
type Form struct {
	Values     Request
	Errors     FieldErrors
	Submitting bool
	Submitted  bool
	Ticket     string
}

// NewForm пустая форма
func NewForm() *Form {
	return &Form{Errors: FieldErrors{}}
}

// Change обновляет поле и убирает его ошибку
func (f *Form) Change(field, value string) {
	switch field {
	case FieldName:
		f.Values.Name = value
	case FieldEmail:
		f.Values.Email = value
	case FieldPhone:
		f.Values.Phone = value
	case FieldService:
		f.Values.Service = value
	case FieldMessage:
		f.Values.Message = value
	default:
		return
	}
	delete(f.Errors, field)
}

// Submit проверяет форму и передает заявку дальше.
// При ошибках проверки меняются только Errors. После Complete вызовы игнорируются.
func (f *Form) Submit(ctx context.Context, s Submitter) error {
	if f.Submitted || f.Submitting {
		return nil
	}

	clean, errs := Validate(f.Values)
	if len(errs) > 0 {
		f.Errors = errs
		return nil
	}
	f.Errors = FieldErrors{}

	ticket, err := s.Submit(ctx, clean)
	if err != nil {
		return err
	}

	f.Submitting = true
	f.Ticket = ticket
	return nil
}

// Complete переводит форму в конечное состояние «отправлено»
func (f *Form) Complete() {
	f.Submitting = false
	f.Submitted = true
}

// HasErrors есть ли ошибки проверки
func (f *Form) HasErrors() bool {
	return len(f.Errors) > 0
}

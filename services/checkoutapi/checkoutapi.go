package checkoutapi

import (
	"fmt"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"

	"github.com/MarcGrol/compositecheckout/lib/myerrors"
)

// Submit is the form payload posted when the shopper hits the pay button.
type Submit struct {
	BasketUID string         `form:"basketUid"`
	Billing   BillingContact `form:"billing"`
	Card      CardFields     `form:"card"`
	ReturnURL string         `form:"returnUrl"`
}

func NewSubmitFromRequest(r *http.Request) (Submit, error) {
	err := r.ParseForm()
	if err != nil {
		return Submit{}, myerrors.NewInvalidInputError(err)
	}
	return NewSubmitFromValues(r.Form)
}

func NewSubmitFromValues(values url.Values) (Submit, error) {
	submit := Submit{}
	err := formcodec.NewDecoder().Decode(&submit, values)
	if err != nil {
		return submit, fmt.Errorf("error decoding form: %s", err)
	}

	return submit, nil
}

func (s Submit) ToForm() (url.Values, error) {
	values, err := formcodec.NewEncoder().Encode(s)
	if err != nil {
		return nil, fmt.Errorf("error encoding form: %s", err)
	}

	return values, nil
}

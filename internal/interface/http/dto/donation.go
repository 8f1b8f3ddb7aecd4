package dto

// StartDonationRequest 发起捐赠
type StartDonationRequest struct {
	Amount int    `json:"amount" binding:"required,min=1" example:"50"`
	Method string `json:"method" binding:"required,max=32" example:"paypal"`
}

// PaymentCallbackRequest 支付网关回调
type PaymentCallbackRequest struct {
	PaymentID      string `json:"payment_id" binding:"required"`
	Succeeded      bool   `json:"succeeded"`
	PayerReference string `json:"payer_reference" binding:"max=255"`
}

package dto

import "net/http"

const MessageSuccess = "Success"

// IngestResponse is the envelope returned for every invocation.
type IngestResponse struct {
	StatusCode int         `json:"statusCode"`
	Body       interface{} `json:"body"`
}

type IngestSuccessBody struct {
	Message            string `json:"message"`
	CampaignsProcessed int    `json:"campaigns_processed"`
}

type IngestErrorBody struct {
	Error string `json:"error"`
}

func NewIngestSuccess(processed int) IngestResponse {
	return IngestResponse{
		StatusCode: http.StatusOK,
		Body:       IngestSuccessBody{Message: MessageSuccess, CampaignsProcessed: processed},
	}
}

func NewIngestFailure(err error) IngestResponse {
	return IngestResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       IngestErrorBody{Error: err.Error()},
	}
}

// Res is the generic error body used by middleware rejections.
type Res struct {
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
}

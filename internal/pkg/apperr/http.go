package apperr

import (
	"encoding/json"
	"net/http"

	"golang.org/x/text/language"
)

var (
	supported = []language.Tag{language.English, language.Korean}
	matcher   = language.NewMatcher(supported)
)

// 本地化消息表，按错误码索引，下标与 supported 对应。
var catalog = map[string][2]string{
	CodeValidation:        {"The request contains invalid fields.", "요청 값이 올바르지 않습니다."},
	CodeReservationAbsent: {"The reservation does not exist.", "예약 정보가 존재하지 않습니다."},
	CodeItemAbsent:        {"The reservable item does not exist.", "예약 물품이 존재하지 않습니다."},
	CodeUserAbsent:        {"The user does not exist.", "사용자 정보가 존재하지 않습니다."},
	CodeInvalidState:      {"The reservation cannot be changed in its current state.", "현재 상태에서는 예약을 변경할 수 없습니다."},
	CodeChannelBusy:       {"A result stream is already open for this request.", "이미 결과 스트림이 열려 있습니다."},
	CodeStillReferenced:   {"The resource is still referenced by active reservations.", "사용 중인 예약이 있어 처리할 수 없습니다."},
	CodeCapacityExhausted: {"There is no remaining capacity.", "예약 가능한 수량이 없습니다."},
	CodeForbidden:         {"You are not allowed to perform this action.", "권한이 없습니다."},
	CodeDependency:        {"A dependent service is temporarily unavailable.", "일시적으로 서비스를 이용할 수 없습니다."},
	CodeCircuitOpen:       {"A dependent service is temporarily unavailable.", "일시적으로 서비스를 이용할 수 없습니다."},
	CodeInternal:          {"An unexpected error occurred.", "알 수 없는 오류가 발생했습니다."},
}

// Payload 是同步调用方收到的标准错误结构。
type Payload struct {
	Status  int          `json:"status"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Detail  string       `json:"detail,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// StatusOf 把错误分类映射为 HTTP 状态码。
func StatusOf(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Localize 根据 Accept-Language 选择消息语言，默认英文。
func Localize(code, acceptLanguage string) string {
	msgs, ok := catalog[code]
	if !ok {
		msgs = catalog[CodeInternal]
	}
	_, idx := language.MatchStrings(matcher, acceptLanguage)
	if idx < 0 || idx >= len(msgs) {
		idx = 0
	}
	return msgs[idx]
}

// WriteHTTP 以 JSON 形式输出错误。
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	e := From(err)
	status := StatusOf(e.Kind)
	p := Payload{
		Status:  status,
		Code:    e.Code,
		Message: Localize(e.Code, r.Header.Get("Accept-Language")),
		Errors:  e.Fields,
	}
	if e.Kind != KindInternal {
		p.Detail = e.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

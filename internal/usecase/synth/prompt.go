package synth

import (
	"strings"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/action"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/grounding"
)

const answerSystemPrompt = "너는 사내 전자결재/그룹웨어 챗봇이다. DB 결과는 사실, 규정 근거는 정책이다. " +
	"출처가 없는 내용은 추측하지 말고, 필요시 근거/데이터 부족을 명시한다."

const none = "(없음)"

// Input is everything the answer and action prompts are built from.
type Input struct {
	Question    string
	History     []domain.Turn
	Grounding   grounding.Context
	AnswerStyle string
}

func answerPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("아래 DB 결과와 규정 근거를 활용해 한국어로 간결하고 정확하게 답변하세요. ")
	b.WriteString("DB는 사실 데이터, RAG는 규정/정책 근거입니다. 정보가 없으면 모른다고 말하세요. ")
	b.WriteString("이전 대화는 보조 정보이며, 현재 질문/DB/RAG 근거를 우선하라.")
	if in.AnswerStyle != "" {
		b.WriteString("답변 스타일: ")
		b.WriteString(in.AnswerStyle)
	}
	if history := domain.HistoryText(in.History); history != "" {
		b.WriteString("\n\n[이전 대화]\n")
		b.WriteString(history)
	}
	b.WriteString("\n\n[질문]\n")
	b.WriteString(in.Question)
	b.WriteString("\n\n[DB 결과]\n")
	b.WriteString(orNone(in.Grounding.Structured))
	b.WriteString("\n\n[규정 근거]\n")
	b.WriteString(orNone(in.Grounding.Semantic))
	return b.String()
}

func actionSystemPrompt() string {
	var b strings.Builder
	b.WriteString("아래 액션 목록 중 적절한 이동 액션을 하나 선택하고 JSON만 출력하세요. ")
	b.WriteString("이메일 관련 질문이 들어오면 메일 작성 액션을 선택합니다. ")
	b.WriteString("예약 관련 질문이 들어오면 내 예약 조회 액션을 선택합니다. ")
	b.WriteString("일정 관련 질문이 들어오면 오늘 일정 액션을 선택합니다. ")
	b.WriteString("결재 작성 질문이 들어오면 결재 작성을 선택합니다. ")
	b.WriteString("적절한 액션이 없으면 null을 출력합니다. ")
	b.WriteString(`형식: {"actionId": "...", "params": {"key": "val"}} 또는 null. `)
	b.WriteString("액션 목록:\n")
	for _, a := range action.Registry() {
		b.WriteString("- ")
		b.WriteString(a.ID)
		b.WriteString(" (")
		b.WriteString(a.Label)
		b.WriteString(", params: [")
		b.WriteString(strings.Join(a.RequiredParams, ", "))
		b.WriteString("])\n")
	}
	b.WriteString("이전 대화는 보조 정보이며, 현재 질문/DB/RAG 근거를 우선하라.")
	return b.String()
}

func actionUserPrompt(in Input) string {
	var b strings.Builder
	if history := domain.HistoryText(in.History); history != "" {
		b.WriteString("[이전 대화]\n")
		b.WriteString(history)
		b.WriteString("\n\n")
	}
	b.WriteString("[질문]\n")
	b.WriteString(in.Question)
	b.WriteString("\n\n[DB]\n")
	b.WriteString(in.Grounding.Structured)
	b.WriteString("\n\n[RAG]\n")
	b.WriteString(in.Grounding.Semantic)
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}

package planner

import (
	"strings"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
)

const systemPrompt = `너는 사내 챗봇 플래너다. 질문을 해결하기 위해 DB 조회(structured), 규정 검색(semantic), 또는 둘 다(hybrid) 계획을 JSON으로만 출력한다.
- mode: structured | semantic | hybrid
- semantic_tasks: [{"query": "...", "top_k": 5}]
- structured_tasks: [{"name": "task_name", "args": {...}}]
- answer_style: 요약/비교/추천 등 힌트
규정/정책/조항 해석은 semantic, 직원/회사 데이터/개수/목록/일정/예약/연락처는 structured, 둘 다 필요하면 hybrid.
DB 조회는 허용된 테이블 범위 내에서만 계획해야 한다.
JSON만 출력하고, 설명은 쓰지 마.
이전 대화는 참고만 하고, 현재 질문을 최우선으로 계획을 세워라.`

func userPrompt(q domain.Question) string {
	history := domain.HistoryText(q.History)
	if history == "" {
		return q.Text
	}
	var b strings.Builder
	b.WriteString("[이전 대화]\n")
	b.WriteString(history)
	b.WriteString("\n\n[현재 질문]\n")
	b.WriteString(q.Text)
	return b.String()
}

package structured

import (
	"fmt"
	"strings"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/catalog"
)

const systemPrompt = "You are a SQL assistant that only writes safe read-only queries."

func userPrompt(cat catalog.Catalog, question, tenantID string, maxLimit int) string {
	var b strings.Builder
	b.WriteString("다음 질문을 SQL SELECT 한 개로 변환하세요. ")
	b.WriteString("테이블/컬럼은 스키마에 명시된 것만 사용합니다. ")
	fmt.Fprintf(&b, "허용 테이블만 사용하세요: %s. ", strings.Join(cat.Tables(), ", "))
	b.WriteString("INSERT/UPDATE/DELETE/DDL은 금지. ")
	fmt.Fprintf(&b, "LIMIT %d 이하로 설정하세요. ", maxLimit)
	b.WriteString("이름/텍스트 검색은 LIKE '%키워드%'를 사용하세요. ")
	if tenantID != "" && cat.TenantColumn() != "" {
		fmt.Fprintf(&b, "%s 컬럼이 존재하면 WHERE %s = '%s' 조건을 반드시 포함하세요. ",
			cat.TenantColumn(), cat.TenantColumn(), strings.ReplaceAll(tenantID, "'", "''"))
	}
	b.WriteString("답변은 코드펜스 없이 SQL만 출력하고, 세미콜론은 붙이지 마세요.")
	b.WriteString("\n\n[스키마]\n")
	b.WriteString(cat.Summary())
	b.WriteString("\n\n[질문]\n")
	b.WriteString(question)
	return b.String()
}

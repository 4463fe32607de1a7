package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// FindAlertRules returns every alert rule bound to a parameter, joined with its
// rule definition and the users subscribed to it.
func (db *DB) FindAlertRules(ctx context.Context, parameterID int64) ([]AlertRule, error) {
	query := `
		SELECT a.id_alerta, a.id_parametro, t.operador, t.valor,
		       COALESCE(a.titulo, ''), COALESCE(a.texto, ''),
		       COALESCE(array_agg(au.id_usuario ORDER BY au.id_usuario) FILTER (WHERE au.id_usuario IS NOT NULL), '{}')
		FROM alerta a
		JOIN tipo_alerta t ON t.id = a.id_tipo_alerta
		LEFT JOIN alerta_usuario au ON au.id_alerta = a.id_alerta
		WHERE a.id_parametro = $1
		GROUP BY a.id_alerta, a.id_parametro, t.operador, t.valor, a.titulo, a.texto
		ORDER BY a.id_alerta
	`

	rows, err := db.conn.QueryContext(ctx, query, parameterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	var rules []AlertRule
	for rows.Next() {
		var rule AlertRule
		var subscribers []int64
		if err := rows.Scan(
			&rule.AlertID,
			&rule.ParameterID,
			&rule.Operator,
			&rule.Threshold,
			&rule.Title,
			&rule.Body,
			pq.Array(&subscribers),
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rule.Subscribers = subscribers
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert rules: %w", err)
	}

	return rules, nil
}

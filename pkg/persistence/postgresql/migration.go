package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create submissions table
			CREATE TABLE submissions (
				id UUID PRIMARY KEY,
				status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'in_review', 'approved', 'rejected', 'returned')),
				priority VARCHAR(10) NOT NULL DEFAULT 'normal' CHECK (priority IN ('normal', 'high', 'urgent')),
				cadastro_type VARCHAR(100) NOT NULL,
				operator_id VARCHAR(255) NOT NULL,
				analyst_id VARCHAR(255),
				submitted_at TIMESTAMP WITH TIME ZONE NOT NULL,
				review_started_at TIMESTAMP WITH TIME ZONE,
				concluded_at TIMESTAMP WITH TIME ZONE,
				returned_at TIMESTAMP WITH TIME ZONE,
				rejection_reason TEXT,
				rejection_category VARCHAR(100),
				review_note TEXT,
				name VARCHAR(255) NOT NULL,
				document_number VARCHAR(32) NOT NULL,
				plate VARCHAR(16) NOT NULL DEFAULT '',
				document_ids TEXT[] NOT NULL DEFAULT '{}',
				fields JSONB,
				version BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				CONSTRAINT submissions_concluded_check
					CHECK ((concluded_at IS NOT NULL) = (status IN ('approved', 'rejected'))),
				CONSTRAINT submissions_review_started_check
					CHECK ((review_started_at IS NULL) = (status = 'pending'))
			);

			CREATE INDEX idx_submissions_status ON submissions(status);
			CREATE INDEX idx_submissions_submitted_at ON submissions(submitted_at DESC);
			CREATE INDEX idx_submissions_operator_id ON submissions(operator_id);
			CREATE INDEX idx_submissions_analyst_id ON submissions(analyst_id);

			-- Create status history table
			CREATE TABLE submission_status_history (
				id UUID PRIMARY KEY,
				submission_id UUID NOT NULL REFERENCES submissions(id),
				operation VARCHAR(20) NOT NULL,
				from_status VARCHAR(20),
				to_status VARCHAR(20) NOT NULL,
				actor_id VARCHAR(255) NOT NULL,
				reason TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_submission_status_history_submission_id
				ON submission_status_history(submission_id, created_at);
		`,
		2: `
			-- Template applied by the last checklist initialization, and checklist items
			CREATE TABLE checklists (
				submission_id UUID PRIMARY KEY REFERENCES submissions(id),
				cadastro_type VARCHAR(100) NOT NULL,
				initialized_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE checklist_items (
				id UUID PRIMARY KEY,
				submission_id UUID NOT NULL REFERENCES submissions(id),
				position INT NOT NULL,
				item_name VARCHAR(255) NOT NULL,
				mandatory BOOLEAN NOT NULL DEFAULT false,
				completed BOOLEAN NOT NULL DEFAULT false,
				completed_by VARCHAR(255),
				completed_at TIMESTAMP WITH TIME ZONE,
				note TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_checklist_items_submission_id ON checklist_items(submission_id, position);
		`,
		3: `
			-- Append-only delay log
			CREATE TABLE delays (
				id UUID PRIMARY KEY,
				submission_id UUID NOT NULL REFERENCES submissions(id),
				reason TEXT NOT NULL CHECK (length(trim(reason)) > 0),
				created_by VARCHAR(255) NOT NULL,
				created_by_name VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				notified BOOLEAN NOT NULL DEFAULT false
			);

			CREATE INDEX idx_delays_submission_id ON delays(submission_id, created_at DESC);
		`,
	}
}

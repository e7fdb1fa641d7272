package testutil

// Schema is the assessment service's storage layout
const Schema = `
CREATE TABLE IF NOT EXISTS patients (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	organization_id UUID NOT NULL,
	date_of_birth DATE NOT NULL,
	medical_history TEXT[] NOT NULL DEFAULT '{}',
	medication_compliance DOUBLE PRECISION,
	mobility_level VARCHAR(20),
	cognitive_status VARCHAR(20),
	lives_alone BOOLEAN,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	risk_score INT,
	risk_level VARCHAR(20),
	risk_factors TEXT[] NOT NULL DEFAULT '{}',
	risk_recommendations TEXT[] NOT NULL DEFAULT '{}',
	last_risk_assessment TIMESTAMPTZ,
	CONSTRAINT patients_risk_level_valid CHECK (risk_level IS NULL OR risk_level IN ('low', 'medium', 'high', 'critical'))
);

CREATE TABLE IF NOT EXISTS caregivers (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	organization_id UUID NOT NULL,
	hourly_rate NUMERIC(10, 2),
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	satisfaction_scores DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
	compliance_issues INT NOT NULL DEFAULT 0,
	performance_score INT,
	performance_grade VARCHAR(1),
	total_visits INT NOT NULL DEFAULT 0,
	on_time_percentage DOUBLE PRECISION,
	last_performance_review TIMESTAMPTZ,
	CONSTRAINT caregivers_hourly_rate_positive CHECK (hourly_rate IS NULL OR hourly_rate > 0)
);

CREATE TABLE IF NOT EXISTS visits (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	organization_id UUID NOT NULL,
	patient_id UUID NOT NULL REFERENCES patients(id),
	caregiver_id UUID NOT NULL REFERENCES caregivers(id),
	scheduled_start TIMESTAMPTZ NOT NULL,
	scheduled_end TIMESTAMPTZ NOT NULL,
	actual_start TIMESTAMPTZ,
	actual_end TIMESTAMPTZ,
	status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
	check_in_latitude DOUBLE PRECISION,
	check_in_longitude DOUBLE PRECISION,
	fraud_flagged BOOLEAN NOT NULL DEFAULT FALSE,
	fraud_confidence INT,
	fraud_reasons TEXT[] NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_visits_caregiver_start ON visits (caregiver_id, scheduled_start DESC);

CREATE TABLE IF NOT EXISTS incidents (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	organization_id UUID NOT NULL,
	patient_id UUID REFERENCES patients(id),
	caregiver_id UUID REFERENCES caregivers(id),
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payroll (
	id UUID PRIMARY KEY,
	organization_id UUID NOT NULL,
	caregiver_id UUID NOT NULL REFERENCES caregivers(id),
	period_start DATE NOT NULL,
	period_end DATE NOT NULL,
	total_hours NUMERIC(10, 2) NOT NULL,
	hourly_rate NUMERIC(10, 2) NOT NULL,
	gross_pay NUMERIC(12, 2) NOT NULL,
	federal_tax NUMERIC(12, 2) NOT NULL,
	state_tax NUMERIC(12, 2) NOT NULL,
	fica NUMERIC(12, 2) NOT NULL,
	deductions NUMERIC(12, 2) NOT NULL,
	net_pay NUMERIC(12, 2) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'draft',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT payroll_status_valid CHECK (status IN ('draft', 'approved', 'paid')),
	CONSTRAINT payroll_period UNIQUE (caregiver_id, period_start, period_end)
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id UUID PRIMARY KEY,
	organization_id UUID NOT NULL,
	actor_id VARCHAR(64) NOT NULL,
	action VARCHAR(50) NOT NULL,
	resource VARCHAR(50) NOT NULL,
	resource_id VARCHAR(64) NOT NULL,
	details JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
